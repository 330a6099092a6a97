package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/api"
	"github.com/aquasafe179-rgb/rapidcareBeta/config"
	"github.com/aquasafe179-rgb/rapidcareBeta/databases"
	"github.com/aquasafe179-rgb/rapidcareBeta/lifecycle"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
	"github.com/aquasafe179-rgb/rapidcareBeta/notifier"
)

// Bed exported for testing purposes
type Bed struct {
	DB       databases.BedDatabase
	Notifier notifier.Publisher
}

// BedRangeRequest creates a contiguous run of beds within one ward
type BedRangeRequest struct {
	HospitalID string `json:"hospitalId"`
	WardNumber int    `json:"wardNumber"`
	BedType    string `json:"bedType"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// BedStatusRequest is the reception desk status edit
type BedStatusRequest struct {
	HospitalID string `json:"hospitalId"`
	Status     string `json:"status"`
}

var bedStatuses = []string{
	models.BedVacant, models.BedOccupied, models.BedReserved,
	models.BedCleaning, models.BedMaintenance,
}

var bedTypes = []string{models.BedTypeICU, models.BedTypeGeneral, models.BedTypeOther}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// BedsByHospitalHandler returns all beds registered under a hospital
func (b Bed) BedsByHospitalHandler(w http.ResponseWriter, r *http.Request) {
	hospitalID := mux.Vars(r)["hospital_id"]

	zap.S().Debugf("hospital_id: '%v'", hospitalID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := b.DB.Find(ctx, bson.M{"bed.hospitalId": hospitalID},
		options.Find().SetSort(bson.D{{Key: "bed.bedId", Value: 1}}))
	if err != nil {
		config.ErrorStatus("failed to get beds", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Bed{}
	}
	res, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res)
}

// CreateRangeHandler registers beds Start..End in a ward, skipping ids that
// already exist so re-running a range is safe
func (b Bed) CreateRangeHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody BedRangeRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if requestBody.HospitalID == "" {
		requestBody.HospitalID = identity.Ref
	}
	if requestBody.HospitalID != identity.Ref {
		config.ErrorStatus("forbidden", http.StatusForbidden, w,
			lifecycle.NewForbiddenError("hospital %s cannot create beds for hospital %s", identity.Ref, requestBody.HospitalID))
		return
	}
	if requestBody.WardNumber <= 0 || requestBody.Start <= 0 || requestBody.End < requestBody.Start {
		config.ErrorStatus("invalid bed range", http.StatusBadRequest, w,
			lifecycle.NewValidationError("wardNumber, start and end must be positive and start <= end"))
		return
	}
	if !contains(bedTypes, requestBody.BedType) {
		config.ErrorStatus("invalid bed type", http.StatusBadRequest, w,
			lifecycle.NewValidationError("bedType must be one of ICU, General, Other"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	created := []models.Bed{}
	for n := requestBody.Start; n <= requestBody.End; n++ {
		bedID := fmt.Sprintf("%s-W%d-B%02d", requestBody.HospitalID, requestBody.WardNumber, n)
		existing, err := b.DB.CountDocuments(r.Context(), bson.M{
			"bed.hospitalId": requestBody.HospitalID,
			"bed.bedId":      bedID,
		})
		if err != nil {
			config.ErrorStatus("failed to check existing beds", http.StatusInternalServerError, w, err)
			return
		}
		if existing > 0 {
			continue
		}
		bed := models.Bed{
			ID: primitive.NewObjectID().Hex(),
			Details: models.BedDetails{
				HospitalID:  requestBody.HospitalID,
				BedID:       bedID,
				BedNumber:   strconv.Itoa(n),
				WardNumber:  strconv.Itoa(requestBody.WardNumber),
				BedType:     requestBody.BedType,
				Status:      models.BedVacant,
				LastUpdated: now,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		}
		if _, err := b.DB.InsertOne(r.Context(), bson.M{"_id": bed.ID, "bed": bed.Details, "__v": int32(0)}); err != nil {
			config.ErrorStatus("failed to insert bed", http.StatusInternalServerError, w, err)
			return
		}
		created = append(created, bed)
	}

	b.Notifier.Publish(notifier.HospitalRoom(requestBody.HospitalID), notifier.EventBedUpdate, created)
	b.Notifier.Broadcast(notifier.EventBedPublicUpdate, map[string]interface{}{
		"hospitalId": requestBody.HospitalID,
	})

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"created": created,
	})
}

// StatusHandler is the reception desk edit of a single bed's status
func (b Bed) StatusHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	bedID := mux.Vars(r)["bed_id"]

	var requestBody BedStatusRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if requestBody.HospitalID == "" {
		requestBody.HospitalID = identity.Ref
	}
	if requestBody.HospitalID != identity.Ref {
		config.ErrorStatus("forbidden", http.StatusForbidden, w,
			lifecycle.NewForbiddenError("hospital %s cannot edit beds of hospital %s", identity.Ref, requestBody.HospitalID))
		return
	}
	if !contains(bedStatuses, requestBody.Status) {
		config.ErrorStatus("invalid bed status", http.StatusBadRequest, w,
			lifecycle.NewValidationError("status must be one of Vacant, Occupied, Reserved, Cleaning, Maintenance"))
		return
	}

	bed, err := b.DB.UpdateStatus(r.Context(), requestBody.HospitalID, bedID, bedStatuses, requestBody.Status)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			config.ErrorStatus("bed not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to update bed status", http.StatusInternalServerError, w, err)
		return
	}

	b.Notifier.Publish(notifier.HospitalRoom(requestBody.HospitalID), notifier.EventBedUpdate, bed)
	b.Notifier.Broadcast(notifier.EventBedPublicUpdate, map[string]interface{}{
		"hospitalId": requestBody.HospitalID,
		"bedId":      bedID,
		"status":     requestBody.Status,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"bed":     bed,
	})
}
