package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/databases"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
	"github.com/aquasafe179-rgb/rapidcareBeta/notifier"
)

const sweepInterval = "@every 5m"

// Sweeper flips On Duty ambulances whose last login is older than the
// configured threshold to Offline, so hospital dashboards don't dispatch to
// terminals that went dark.
type Sweeper struct {
	DB        databases.AmbulanceDatabase
	Notifier  notifier.Publisher
	OlderThan time.Duration

	cron *cron.Cron
}

// New creates a sweeper, it does not start it
func New(db databases.AmbulanceDatabase, n notifier.Publisher, olderThan time.Duration) *Sweeper {
	return &Sweeper{DB: db, Notifier: n, OlderThan: olderThan, cron: cron.New()}
}

// Start schedules the sweep and kicks off the cron runner
func (s *Sweeper) Start() {
	_, err := s.cron.AddFunc(sweepInterval, s.Sweep)
	if err != nil {
		zap.S().Errorw("failed to schedule ambulance sweep", "error", err)
		return
	}
	s.cron.Start()
}

// Stop halts the cron runner, waiting for a running sweep to finish
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep runs one pass. Exported so a deploy hook or test can trigger it
// directly.
func (s *Sweeper) Sweep() {
	cutoff := primitive.NewDateTimeFromTime(time.Now().UTC().Add(-s.OlderThan))

	stale, err := s.DB.Find(context.Background(), bson.M{
		"ambulance.status":    models.AmbulanceOnDuty,
		"ambulance.lastLogin": bson.M{"$lt": cutoff},
	})
	if err != nil {
		zap.S().Errorw("ambulance sweep query failed", "error", err)
		return
	}

	for _, amb := range stale {
		_, err := s.DB.UpdateOne(context.Background(),
			bson.M{"ambulance.ambulanceId": amb.Details.AmbulanceID, "ambulance.status": models.AmbulanceOnDuty},
			bson.M{"$set": bson.M{
				"ambulance.status":    models.AmbulanceOffline,
				"ambulance.updatedAt": primitive.NewDateTimeFromTime(time.Now().UTC()),
			}})
		if err != nil {
			zap.S().Warnw("failed to mark ambulance offline", "ambulanceId", amb.Details.AmbulanceID, "error", err)
			continue
		}
		s.Notifier.Publish(notifier.HospitalRoom(amb.Details.HospitalID), notifier.EventAmbulanceStatusUpdate, map[string]interface{}{
			"ambulanceId": amb.Details.AmbulanceID,
			"status":      models.AmbulanceOffline,
		})
		zap.S().Infow("ambulance marked offline after inactivity", "ambulanceId", amb.Details.AmbulanceID)
	}
}
