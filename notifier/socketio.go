package notifier

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

// TokenParser validates a bearer token presented at room-join time and
// resolves it to the caller identity. Joins are refused when the token scope
// does not cover the requested room.
type TokenParser func(token string) (models.Identity, error)

// authorizeJoin resolves the presented token and checks that its scope covers
// the requested room. A parse failure, a role mismatch, or a token scoped to a
// different hospital/ambulance all refuse the join.
func authorizeJoin(parse TokenParser, token, role, ref string) bool {
	identity, err := parse(token)
	if err != nil {
		return false
	}
	return identity.Role == role && identity.Ref == ref
}

type socketSession struct {
	c socketio.Conn
}

func (s socketSession) ID() string {
	return s.c.ID()
}

func (s socketSession) Emit(event string, payload interface{}) {
	s.c.Emit(event, payload)
}

// NewSocketServer initializes the Socket.IO server and wires its room
// membership into the registry. The same bearer tokens used on the REST
// surface must be presented on join events.
func NewSocketServer(reg Registry, parse TokenParser) *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			polling.Default,
			websocket.Default,
		},
	})
	router := NewRouter(reg)

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		reg.Connect(socketSession{s})
		zap.S().Debugf("socket connected: %v", s.ID())
		return nil
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		zap.S().Warnf("socket error: %v", e)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		reg.Disconnect(socketSession{s})
		zap.S().Debugf("socket disconnected: %v reason: %v", s.ID(), reason)
	})

	server.OnEvent("/", "joinHospitalRoom", func(s socketio.Conn, msg map[string]interface{}) {
		hospitalID, _ := msg["hospitalId"].(string)
		token, _ := msg["token"].(string)
		if !authorizeJoin(parse, token, models.RoleHospital, hospitalID) {
			s.Emit(EventJoinDenied, map[string]interface{}{"room": HospitalRoom(hospitalID)})
			zap.S().Warnw("refused hospital room join", "hospitalId", hospitalID, "socket", s.ID())
			return
		}
		reg.Join(HospitalRoom(hospitalID), socketSession{s})
		zap.S().Debugf("socket %v joined hospital room: %v", s.ID(), hospitalID)
	})

	server.OnEvent("/", "joinAmbulanceRoom", func(s socketio.Conn, msg map[string]interface{}) {
		ambulanceID, _ := msg["ambulanceId"].(string)
		token, _ := msg["token"].(string)
		if !authorizeJoin(parse, token, models.RoleAmbulance, ambulanceID) {
			s.Emit(EventJoinDenied, map[string]interface{}{"room": AmbulanceRoom(ambulanceID)})
			zap.S().Warnw("refused ambulance room join", "ambulanceId", ambulanceID, "socket", s.ID())
			return
		}
		reg.Join(AmbulanceRoom(ambulanceID), socketSession{s})
		zap.S().Debugf("socket %v joined ambulance room: %v", s.ID(), ambulanceID)
	})

	// Client-driven relays kept from the original frontend contract: live
	// ambulance position and heartbeat to the hospital reception dashboard.
	server.OnEvent("/", "ambulanceLocation", func(s socketio.Conn, msg map[string]interface{}) {
		hospitalID, _ := msg["hospitalId"].(string)
		router.Publish(HospitalRoom(hospitalID), EventAmbulanceLocation, msg)
	})

	server.OnEvent("/", "ambulance:heartbeat", func(s socketio.Conn, msg map[string]interface{}) {
		hospitalID, _ := msg["hospitalId"].(string)
		status, _ := msg["status"].(string)
		if status == "" {
			status = models.AmbulanceOnDuty
		}
		router.Publish(HospitalRoom(hospitalID), EventAmbulanceStatusUpdate, map[string]interface{}{
			"ambulanceId": msg["ambulanceId"],
			"status":      status,
			"location":    msg["location"],
		})
	})

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("socket.io server error: %v", err)
		}
	}()

	return server
}
