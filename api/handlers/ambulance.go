package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/api"
	"github.com/aquasafe179-rgb/rapidcareBeta/config"
	"github.com/aquasafe179-rgb/rapidcareBeta/databases"
	"github.com/aquasafe179-rgb/rapidcareBeta/lifecycle"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
	"github.com/aquasafe179-rgb/rapidcareBeta/notifier"
)

// Ambulance exported for testing purposes
type Ambulance struct {
	DB       databases.AmbulanceDatabase
	Notifier notifier.Publisher
}

// AmbulanceStatusRequest lets a terminal flip its own duty status
type AmbulanceStatusRequest struct {
	Status string `json:"status"`
}

var ambulanceStatuses = []string{
	models.AmbulanceOnDuty, models.AmbulanceOffline, models.AmbulanceInTransit,
}

// AmbulancesByHospitalHandler returns the fleet registered under a hospital
func (a Ambulance) AmbulancesByHospitalHandler(w http.ResponseWriter, r *http.Request) {
	hospitalID := mux.Vars(r)["hospital_id"]

	zap.S().Debugf("hospital_id: '%v'", hospitalID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := a.DB.Find(ctx, bson.M{"ambulance.hospitalId": hospitalID},
		options.Find().SetSort(bson.D{{Key: "ambulance.ambulanceId", Value: 1}}))
	if err != nil {
		config.ErrorStatus("failed to get ambulances", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Ambulance{}
	}
	res, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res)
}

// AmbulanceByIDHandler returns one ambulance record
func (a Ambulance) AmbulanceByIDHandler(w http.ResponseWriter, r *http.Request) {
	ambulanceID := mux.Vars(r)["ambulance_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := a.DB.FindOne(ctx, bson.M{"ambulance.ambulanceId": ambulanceID})
	if err != nil {
		config.ErrorStatus("failed to get ambulance", http.StatusNotFound, w, err)
		return
	}
	res, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res)
}

// StatusHandler flips an ambulance's duty status. Only the ambulance itself may
// change it over REST; the offline sweep uses the database directly.
func (a Ambulance) StatusHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	ambulanceID := mux.Vars(r)["ambulance_id"]

	if identity.Ref != ambulanceID {
		config.ErrorStatus("forbidden", http.StatusForbidden, w,
			lifecycle.NewForbiddenError("ambulance %s cannot change status of ambulance %s", identity.Ref, ambulanceID))
		return
	}

	var requestBody AmbulanceStatusRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if !contains(ambulanceStatuses, requestBody.Status) {
		config.ErrorStatus("invalid ambulance status", http.StatusBadRequest, w,
			lifecycle.NewValidationError("status must be one of On Duty, Offline, In Transit"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	dbResp, err := a.DB.UpdateOne(r.Context(),
		bson.M{"ambulance.ambulanceId": ambulanceID},
		bson.M{"$set": bson.M{
			"ambulance.status":    requestBody.Status,
			"ambulance.updatedAt": now,
		}})
	if err != nil {
		config.ErrorStatus("failed to update ambulance status", http.StatusNotFound, w, err)
		return
	}

	a.Notifier.Publish(notifier.HospitalRoom(dbResp.Details.HospitalID), notifier.EventAmbulanceStatusUpdate, map[string]interface{}{
		"ambulanceId": ambulanceID,
		"status":      requestBody.Status,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"ambulance": dbResp,
	})
}
