package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aquasafe179-rgb/rapidcareBeta/databases/mocks"
	"github.com/aquasafe179-rgb/rapidcareBeta/lifecycle"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

const emergencyID = "608cafe595eb9dc05379b7f4"

type recordedEvent struct {
	Room    string
	Event   string
	Payload interface{}
}

// recordingPublisher captures everything the engine would have routed to the
// socket layer
type recordingPublisher struct {
	Events []recordedEvent
}

func (r *recordingPublisher) Publish(room, event string, payload interface{}) {
	r.Events = append(r.Events, recordedEvent{Room: room, Event: event, Payload: payload})
}

func (r *recordingPublisher) Broadcast(event string, payload interface{}) {
	r.Events = append(r.Events, recordedEvent{Room: "", Event: event, Payload: payload})
}

func (r *recordingPublisher) has(room, event string) bool {
	for _, e := range r.Events {
		if e.Room == room && e.Event == event {
			return true
		}
	}
	return false
}

func pendingEmergency() *models.Emergency {
	return &models.Emergency{
		ID: emergencyID,
		Details: models.EmergencyDetails{
			Patient:     models.Patient{Name: "Ravi Kumar", ContactMobile: "9876543210"},
			HospitalID:  "H1",
			Status:      models.StatusPending,
			SubmittedBy: models.SubmitterPublic,
		},
		Version: 3,
	}
}

func newTestEngine(em *mocks.EmergencyDatabase, am *mocks.AmbulanceDatabase, beds *mocks.BedDatabase) (*lifecycle.Engine, *recordingPublisher) {
	pub := &recordingPublisher{}
	return lifecycle.NewEngine(em, am, lifecycle.NewAllocator(beds), pub), pub
}

func TestEngine_CreateMissingFields(t *testing.T) {
	engine, pub := newTestEngine(&mocks.EmergencyDatabase{}, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	_, err := engine.Create(context.Background(), models.SubmitterPublic, nil, lifecycle.CreateRequest{})

	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "patient.name")
	assert.Contains(t, err.Error(), "patient.contactMobile")
	assert.Contains(t, err.Error(), "hospitalId")
	assert.Empty(t, pub.Events)
}

func TestEngine_CreatePublic(t *testing.T) {
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("InsertOne", mock.Anything, mock.Anything).Return(&mocks.InsertOneResultHelper{}, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	em, err := engine.Create(context.Background(), models.SubmitterPublic, nil, lifecycle.CreateRequest{
		Patient:    models.Patient{Name: "Ravi Kumar", ContactMobile: "9876543210"},
		HospitalID: "H1",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, em.Details.Status)
	assert.Equal(t, models.SubmitterPublic, em.Details.SubmittedBy)
	assert.Equal(t, int32(0), em.Version)
	assert.True(t, pub.has("hospital_H1", "emergency:new:public"))
	emDB.AssertExpectations(t)
}

func TestEngine_CreateAmbulanceAttachesCrew(t *testing.T) {
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("InsertOne", mock.Anything, mock.Anything).Return(&mocks.InsertOneResultHelper{}, nil)
	amDB := &mocks.AmbulanceDatabase{}
	amDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.Ambulance{
		ID: "a1",
		Details: models.AmbulanceDetails{
			AmbulanceID: "AMB9",
			HospitalID:  "H1",
			Emt:         models.CrewMember{Name: "Asha", MemberID: "EMT7", Mobile: "111"},
			Pilot:       models.CrewMember{Name: "Vikram", MemberID: "PIL2", Mobile: "222"},
		},
	}, nil)
	amDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&models.Ambulance{}, nil)
	engine, pub := newTestEngine(emDB, amDB, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleAmbulance, Ref: "AMB9"}
	em, err := engine.Create(context.Background(), models.SubmitterAmbulance, &actor, lifecycle.CreateRequest{
		Patient:    models.Patient{Name: "Ravi Kumar", ContactMobile: "9876543210"},
		HospitalID: "H1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "AMB9", em.Details.AmbulanceID)
	assert.Equal(t, "Asha", em.Details.EmtName)
	assert.Equal(t, "Vikram", em.Details.PilotName)
	assert.True(t, pub.has("hospital_H1", "emergency:new:ambulance"))
	assert.True(t, pub.has("hospital_H1", "ambulance:statusUpdate"))
}

func TestEngine_CreateHospitalForOtherHospital(t *testing.T) {
	engine, _ := newTestEngine(&mocks.EmergencyDatabase{}, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H2"}
	_, err := engine.Create(context.Background(), models.SubmitterAmbulance, &actor, lifecycle.CreateRequest{
		Patient:    models.Patient{Name: "Ravi Kumar", ContactMobile: "9876543210"},
		HospitalID: "H1",
	})

	var ferr *lifecycle.ForbiddenError
	assert.ErrorAs(t, err, &ferr)
}

func TestEngine_AcceptPublishesResponse(t *testing.T) {
	em := pendingEmergency()
	accepted := *em
	accepted.Details.Status = models.StatusAccepted
	accepted.Version = 4

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, []string{models.StatusPending}, int32(3), mock.Anything).Return(&accepted, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	updated, err := engine.Accept(context.Background(), emergencyID, actor, lifecycle.AcceptRequest{Remarks: "send to icu"})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, updated.Details.Status)
	assert.True(t, pub.has("hospital_H1", "emergency:update"))
	// a public submission gets the broadcast reply the portal tracker listens on
	assert.True(t, pub.has("", "emergency:reply:public"))
}

func TestEngine_AcceptConcurrentModification(t *testing.T) {
	em := pendingEmergency()
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, mock.Anything, int32(3), mock.Anything).Return(nil, mongo.ErrNoDocuments)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Accept(context.Background(), emergencyID, actor, lifecycle.AcceptRequest{})

	var cerr *lifecycle.ConflictError
	assert.ErrorAs(t, err, &cerr)
	assert.Empty(t, pub.Events)
}

func TestEngine_AcceptWrongStatus(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Accept(context.Background(), emergencyID, actor, lifecycle.AcceptRequest{})

	var cerr *lifecycle.ConflictError
	assert.ErrorAs(t, err, &cerr)
}

func TestEngine_RejectRequiresReason(t *testing.T) {
	engine, _ := newTestEngine(&mocks.EmergencyDatabase{}, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Reject(context.Background(), emergencyID, actor, lifecycle.RejectRequest{RejectionReason: "   "})

	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngine_RejectByNonOwner(t *testing.T) {
	em := pendingEmergency()
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H2"}
	_, err := engine.Reject(context.Background(), emergencyID, actor, lifecycle.RejectRequest{RejectionReason: "no ICU beds"})

	var ferr *lifecycle.ForbiddenError
	assert.ErrorAs(t, err, &ferr)
}

func TestEngine_RejectPublicBroadcastsReply(t *testing.T) {
	em := pendingEmergency()
	rejected := *em
	rejected.Details.Status = models.StatusRejected
	rejected.Details.RejectionReason = "no ICU beds"

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, []string{models.StatusPending}, int32(3), mock.Anything).Return(&rejected, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	updated, err := engine.Reject(context.Background(), emergencyID, actor, lifecycle.RejectRequest{
		RejectionReason:    "no ICU beds",
		AlternateHospitals: []string{"H2", "H3"},
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Details.Status)
	assert.True(t, pub.has("hospital_H1", "emergency:update"))
	assert.True(t, pub.has("", "emergency:reply:public"))
}

func TestEngine_TransferRequiresTarget(t *testing.T) {
	engine, _ := newTestEngine(&mocks.EmergencyDatabase{}, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Transfer(context.Background(), emergencyID, actor, lifecycle.TransferRequest{})

	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngine_TransferAppliesDefaults(t *testing.T) {
	em := pendingEmergency()
	transferred := *em
	transferred.Details.Status = models.StatusTransferred

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, []string{models.StatusPending}, int32(3),
		mock.MatchedBy(func(set map[string]interface{}) bool {
			return set["emergency.transferReason"] == lifecycle.DefaultTransferReason &&
				set["emergency.selectedHospital"] == "H2"
		})).Return(&transferred, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Transfer(context.Background(), emergencyID, actor, lifecycle.TransferRequest{SelectedHospital: "H2"})

	assert.NoError(t, err)
	assert.True(t, pub.has("", "emergency:reply:public"))
	emDB.AssertExpectations(t)
}

func TestEngine_MarkHandledByNonOwnerAmbulance(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	em.Details.AmbulanceID = "AMB9"
	em.Details.SubmittedBy = models.SubmitterAmbulance

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleAmbulance, Ref: "AMB1"}
	_, err := engine.MarkHandled(context.Background(), emergencyID, actor, lifecycle.HandledRequest{})

	var ferr *lifecycle.ForbiddenError
	assert.ErrorAs(t, err, &ferr)
}

func TestEngine_MarkHandled(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	em.Details.AmbulanceID = "AMB9"
	em.Details.SubmittedBy = models.SubmitterAmbulance
	handled := *em
	handled.Details.Status = models.StatusHandled

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, []string{models.StatusAccepted}, int32(3),
		mock.MatchedBy(func(set map[string]interface{}) bool {
			return set["emergency.handledComment"] == lifecycle.DefaultHandledComment
		})).Return(&handled, nil)
	amDB := &mocks.AmbulanceDatabase{}
	amDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&models.Ambulance{}, nil)
	engine, pub := newTestEngine(emDB, amDB, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleAmbulance, Ref: "AMB9"}
	updated, err := engine.MarkHandled(context.Background(), emergencyID, actor, lifecycle.HandledRequest{})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusHandled, updated.Details.Status)
	assert.True(t, pub.has("hospital_H1", "emergency:handled"))
	assert.True(t, pub.has("hospital_H1", "ambulance:statusUpdate"))
}

func vacantBed() *models.Bed {
	return &models.Bed{
		ID: "b1",
		Details: models.BedDetails{
			HospitalID: "H1",
			BedID:      "H1-W2-B05",
			Status:     models.BedVacant,
		},
	}
}

func TestEngine_AdmitOccupiesBed(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	admitted := *em
	admitted.Details.Status = models.StatusAdmitted
	admitted.Details.BedID = "H1-W2-B05"

	occupied := vacantBed()
	occupied.Details.Status = models.BedOccupied

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, []string{models.StatusAccepted}, int32(3), mock.Anything).Return(&admitted, nil)
	bedDB := &mocks.BedDatabase{}
	bedDB.On("FindOne", mock.Anything, mock.Anything).Return(vacantBed(), nil)
	bedDB.On("UpdateStatus", mock.Anything, "H1", "H1-W2-B05", []string{models.BedVacant}, models.BedOccupied).Return(occupied, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, bedDB)

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	updated, bed, err := engine.Admit(context.Background(), emergencyID, actor, lifecycle.AdmitRequest{BedID: "H1-W2-B05"})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusAdmitted, updated.Details.Status)
	assert.Equal(t, models.BedOccupied, bed.Details.Status)
	assert.True(t, pub.has("hospital_H1", "emergency:update"))
	assert.True(t, pub.has("hospital_H1", "bed:update"))
	assert.True(t, pub.has("", "bed:publicUpdate"))
}

func TestEngine_AdmitOccupiedBedConflicts(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted

	taken := vacantBed()
	taken.Details.Status = models.BedOccupied

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	bedDB := &mocks.BedDatabase{}
	bedDB.On("FindOne", mock.Anything, mock.Anything).Return(taken, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, bedDB)

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, _, err := engine.Admit(context.Background(), emergencyID, actor, lifecycle.AdmitRequest{BedID: "H1-W2-B05"})

	var cerr *lifecycle.ConflictError
	assert.ErrorAs(t, err, &cerr)
	assert.Empty(t, pub.Events)
	// the record must never commit when the bed was not booked
	emDB.AssertNotCalled(t, "ConditionalUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_AdmitCompensatesOnCommitConflict(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted

	occupied := vacantBed()
	occupied.Details.Status = models.BedOccupied
	released := vacantBed()

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, mock.Anything, int32(3), mock.Anything).Return(nil, mongo.ErrNoDocuments)
	bedDB := &mocks.BedDatabase{}
	bedDB.On("FindOne", mock.Anything, mock.Anything).Return(vacantBed(), nil)
	bedDB.On("UpdateStatus", mock.Anything, "H1", "H1-W2-B05", []string{models.BedVacant}, models.BedOccupied).Return(occupied, nil)
	bedDB.On("UpdateStatus", mock.Anything, "H1", "H1-W2-B05", []string{models.BedOccupied, models.BedReserved}, models.BedVacant).Return(released, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, bedDB)

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, _, err := engine.Admit(context.Background(), emergencyID, actor, lifecycle.AdmitRequest{BedID: "H1-W2-B05"})

	var cerr *lifecycle.ConflictError
	assert.ErrorAs(t, err, &cerr)
	bedDB.AssertExpectations(t)
}

func TestEngine_DischargeReleasesBed(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAdmitted
	em.Details.BedID = "H1-W2-B05"
	discharged := *em
	discharged.Details.Status = models.StatusDischarged
	discharged.Details.BedID = ""

	released := vacantBed()

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, []string{models.StatusAdmitted}, int32(3), mock.Anything).Return(&discharged, nil)
	bedDB := &mocks.BedDatabase{}
	bedDB.On("UpdateStatus", mock.Anything, "H1", "H1-W2-B05", []string{models.BedOccupied, models.BedReserved}, models.BedVacant).Return(released, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, bedDB)

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	updated, bed, err := engine.Discharge(context.Background(), emergencyID, actor)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusDischarged, updated.Details.Status)
	assert.Equal(t, models.BedVacant, bed.Details.Status)
	assert.True(t, pub.has("hospital_H1", "bed:update"))
	assert.True(t, pub.has("", "bed:publicUpdate"))
}

func TestEngine_DischargeWrongStatus(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, _, err := engine.Discharge(context.Background(), emergencyID, actor)

	var cerr *lifecycle.ConflictError
	assert.ErrorAs(t, err, &cerr)
}

func TestEngine_ReplyValidation(t *testing.T) {
	engine, _ := newTestEngine(&mocks.EmergencyDatabase{}, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})
	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}

	_, err := engine.Reply(context.Background(), emergencyID, actor, lifecycle.ReplyRequest{Status: models.StatusAccepted})
	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngine_ReplyRejectsAdmittedTarget(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Reply(context.Background(), emergencyID, actor, lifecycle.ReplyRequest{
		Status:  models.StatusAdmitted,
		Message: "bed is ready",
	})

	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngine_ReplyRejectsHandledTarget(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Reply(context.Background(), emergencyID, actor, lifecycle.ReplyRequest{
		Status:  models.StatusHandled,
		Message: "crew reported the run complete",
	})

	// a reply never stamps handledBy/handledAt, so it may not close the run
	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
	emDB.AssertNotCalled(t, "ConditionalUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_ReplyIllegalTarget(t *testing.T) {
	em := pendingEmergency()
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	// Pending cannot jump straight to Discharged
	_, err := engine.Reply(context.Background(), emergencyID, actor, lifecycle.ReplyRequest{
		Status:  models.StatusDischarged,
		Message: "done",
	})

	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngine_ReplyToAmbulanceRoom(t *testing.T) {
	em := pendingEmergency()
	em.Details.SubmittedBy = models.SubmitterAmbulance
	em.Details.AmbulanceID = "AMB9"
	replied := *em
	replied.Details.Status = models.StatusAccepted

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, []string{models.StatusPending, models.StatusAccepted}, int32(3), mock.Anything).Return(&replied, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Reply(context.Background(), emergencyID, actor, lifecycle.ReplyRequest{
		Status:  models.StatusAccepted,
		Message: "come to gate 3",
	})

	assert.NoError(t, err)
	assert.True(t, pub.has("ambulance_AMB9", "emergency:reply:ambulance"))
	assert.False(t, pub.has("", "emergency:reply:public"))
}

func TestEngine_UpdateStatusIllegalTransition(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusRejected
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.UpdateStatus(context.Background(), emergencyID, actor, lifecycle.StatusRequest{Status: models.StatusAccepted})

	var cerr *lifecycle.ConflictError
	assert.ErrorAs(t, err, &cerr)
}

func TestEngine_UpdateStatusRejectsHandledTarget(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.UpdateStatus(context.Background(), emergencyID, actor, lifecycle.StatusRequest{Status: models.StatusHandled})

	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
	emDB.AssertNotCalled(t, "ConditionalUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_SetPrepInfoNotifiesHospital(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	em.Details.AmbulanceID = "AMB9"
	updated := *em
	updated.Details.PrepInfo = models.PrepInfo{Vitals: "BP dropping"}

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, mock.Anything, int32(3), mock.Anything).Return(&updated, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleAmbulance, Ref: "AMB9"}
	_, err := engine.SetPrepInfo(context.Background(), emergencyID, actor, models.PrepInfo{Vitals: "BP dropping"})

	assert.NoError(t, err)
	assert.True(t, pub.has("hospital_H1", "emergency:update"))
}

func TestEngine_SetReadyToServeNotifiesAmbulance(t *testing.T) {
	em := pendingEmergency()
	em.Details.Status = models.StatusAccepted
	em.Details.AmbulanceID = "AMB9"
	updated := *em
	updated.Details.IsReadyToServe = true

	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(em, nil)
	emDB.On("ConditionalUpdate", mock.Anything, emergencyID, mock.Anything, int32(3), mock.Anything).Return(&updated, nil)
	engine, pub := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.SetReadyToServe(context.Background(), emergencyID, actor)

	assert.NoError(t, err)
	assert.True(t, pub.has("ambulance_AMB9", "emergency:update"))
}

func TestEngine_GetInvalidID(t *testing.T) {
	engine, _ := newTestEngine(&mocks.EmergencyDatabase{}, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Accept(context.Background(), "not-a-hex-id", actor, lifecycle.AcceptRequest{})

	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngine_GetNotFound(t *testing.T) {
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Accept(context.Background(), emergencyID, actor, lifecycle.AcceptRequest{})

	var nferr *lifecycle.NotFoundError
	assert.ErrorAs(t, err, &nferr)
}

func TestEngine_GetStoreError(t *testing.T) {
	emDB := &mocks.EmergencyDatabase{}
	emDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	engine, _ := newTestEngine(emDB, &mocks.AmbulanceDatabase{}, &mocks.BedDatabase{})

	actor := models.Identity{Role: models.RoleHospital, Ref: "H1"}
	_, err := engine.Accept(context.Background(), emergencyID, actor, lifecycle.AcceptRequest{})

	assert.EqualError(t, err, "mocked-error")
}
