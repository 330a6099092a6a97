package scheduler_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aquasafe179-rgb/rapidcareBeta/api/scheduler"
	"github.com/aquasafe179-rgb/rapidcareBeta/databases/mocks"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
	"github.com/aquasafe179-rgb/rapidcareBeta/notifier"
)

type capturedEvent struct {
	Room  string
	Event string
}

type capturingPublisher struct {
	Events []capturedEvent
}

func (p *capturingPublisher) Publish(room, event string, payload interface{}) {
	p.Events = append(p.Events, capturedEvent{Room: room, Event: event})
}

func (p *capturingPublisher) Broadcast(event string, payload interface{}) {
	p.Events = append(p.Events, capturedEvent{Event: event})
}

func staleAmbulance(id, hospitalID string) models.Ambulance {
	return models.Ambulance{Details: models.AmbulanceDetails{
		AmbulanceID: id,
		HospitalID:  hospitalID,
		Status:      models.AmbulanceOnDuty,
	}}
}

func TestSweepMarksStaleAmbulancesOffline(t *testing.T) {
	db := &mocks.AmbulanceDatabase{}
	pub := &capturingPublisher{}
	s := scheduler.New(db, pub, 12*time.Hour)

	db.On("Find", mock.Anything, mock.MatchedBy(func(filter bson.M) bool {
		return filter["ambulance.status"] == models.AmbulanceOnDuty
	})).Return([]models.Ambulance{staleAmbulance("AMB9", "H1")}, nil)
	db.On("UpdateOne", mock.Anything,
		bson.M{"ambulance.ambulanceId": "AMB9", "ambulance.status": models.AmbulanceOnDuty},
		mock.Anything).Return(&models.Ambulance{}, nil)

	s.Sweep()

	db.AssertExpectations(t)
	if assert.Len(t, pub.Events, 1) {
		assert.Equal(t, notifier.HospitalRoom("H1"), pub.Events[0].Room)
		assert.Equal(t, notifier.EventAmbulanceStatusUpdate, pub.Events[0].Event)
	}
}

func TestSweepQueryFailureIsSilent(t *testing.T) {
	db := &mocks.AmbulanceDatabase{}
	pub := &capturingPublisher{}
	s := scheduler.New(db, pub, 0)

	db.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-db-error"))

	s.Sweep()

	assert.Empty(t, pub.Events)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepContinuesPastUpdateFailure(t *testing.T) {
	db := &mocks.AmbulanceDatabase{}
	pub := &capturingPublisher{}
	s := scheduler.New(db, pub, 0)

	db.On("Find", mock.Anything, mock.Anything).Return([]models.Ambulance{
		staleAmbulance("AMB1", "H1"),
		staleAmbulance("AMB2", "H2"),
	}, nil)
	db.On("UpdateOne", mock.Anything,
		bson.M{"ambulance.ambulanceId": "AMB1", "ambulance.status": models.AmbulanceOnDuty},
		mock.Anything).Return(nil, errors.New("mocked-db-error"))
	db.On("UpdateOne", mock.Anything,
		bson.M{"ambulance.ambulanceId": "AMB2", "ambulance.status": models.AmbulanceOnDuty},
		mock.Anything).Return(&models.Ambulance{}, nil)

	s.Sweep()

	db.AssertExpectations(t)
	if assert.Len(t, pub.Events, 1) {
		assert.Equal(t, notifier.HospitalRoom("H2"), pub.Events[0].Room)
	}
}
