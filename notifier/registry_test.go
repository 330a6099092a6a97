package notifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aquasafe179-rgb/rapidcareBeta/notifier"
)

type fakeSession struct {
	id     string
	events []string
	last   interface{}
}

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) Emit(event string, payload interface{}) {
	f.events = append(f.events, event)
	f.last = payload
}

func TestRegistry_JoinAndSessions(t *testing.T) {
	reg := notifier.NewRegistry()
	s1 := &fakeSession{id: "s1"}
	s2 := &fakeSession{id: "s2"}

	reg.Join("hospital_H1", s1)
	reg.Join("hospital_H1", s2)
	reg.Join("hospital_H2", s2)

	assert.Len(t, reg.Sessions("hospital_H1"), 2)
	assert.Len(t, reg.Sessions("hospital_H2"), 1)
	assert.Empty(t, reg.Sessions("hospital_H3"))
}

func TestRegistry_Leave(t *testing.T) {
	reg := notifier.NewRegistry()
	s1 := &fakeSession{id: "s1"}

	reg.Join("hospital_H1", s1)
	reg.Leave("hospital_H1", s1)

	assert.Empty(t, reg.Sessions("hospital_H1"))
}

func TestRegistry_DisconnectClearsAllRooms(t *testing.T) {
	reg := notifier.NewRegistry()
	s1 := &fakeSession{id: "s1"}

	reg.Connect(s1)
	reg.Join("hospital_H1", s1)
	reg.Join("ambulance_A1", s1)
	reg.Disconnect(s1)

	assert.Empty(t, reg.Sessions("hospital_H1"))
	assert.Empty(t, reg.Sessions("ambulance_A1"))

	seen := 0
	reg.Each(func(s notifier.Session) { seen++ })
	assert.Zero(t, seen)
}

func TestRegistry_EachCoversConnectedSessions(t *testing.T) {
	reg := notifier.NewRegistry()
	reg.Connect(&fakeSession{id: "s1"})
	reg.Join("hospital_H1", &fakeSession{id: "s2"})

	seen := map[string]bool{}
	reg.Each(func(s notifier.Session) { seen[s.ID()] = true })

	assert.True(t, seen["s1"])
	assert.True(t, seen["s2"])
}

func TestRouter_PublishIsRoomScoped(t *testing.T) {
	reg := notifier.NewRegistry()
	router := notifier.NewRouter(reg)

	h1 := &fakeSession{id: "h1"}
	h2 := &fakeSession{id: "h2"}
	reg.Join(notifier.HospitalRoom("H1"), h1)
	reg.Join(notifier.HospitalRoom("H2"), h2)

	router.Publish(notifier.HospitalRoom("H1"), notifier.EventEmergencyUpdate, map[string]string{"requestId": "r1"})

	assert.Equal(t, []string{notifier.EventEmergencyUpdate}, h1.events)
	assert.Empty(t, h2.events)
}

func TestRouter_PublishEmptyRoomIsNoop(t *testing.T) {
	router := notifier.NewRouter(notifier.NewRegistry())
	router.Publish(notifier.HospitalRoom("H1"), notifier.EventEmergencyUpdate, nil)
}

func TestRouter_BroadcastReachesEverySession(t *testing.T) {
	reg := notifier.NewRegistry()
	router := notifier.NewRouter(reg)

	portal := &fakeSession{id: "portal"}
	amb := &fakeSession{id: "amb"}
	reg.Connect(portal)
	reg.Join(notifier.AmbulanceRoom("A1"), amb)

	router.Broadcast(notifier.EventBedPublicUpdate, map[string]string{"hospitalId": "H1"})

	assert.Equal(t, []string{notifier.EventBedPublicUpdate}, portal.events)
	assert.Equal(t, []string{notifier.EventBedPublicUpdate}, amb.events)
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "hospital_H1", notifier.HospitalRoom("H1"))
	assert.Equal(t, "ambulance_A1", notifier.AmbulanceRoom("A1"))
}
