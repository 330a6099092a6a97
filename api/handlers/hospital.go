package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aquasafe179-rgb/rapidcareBeta/api"
	"github.com/aquasafe179-rgb/rapidcareBeta/config"
	"github.com/aquasafe179-rgb/rapidcareBeta/databases"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

// Hospital exported for testing purposes
type Hospital struct {
	DB databases.HospitalDatabase
}

// HospitalsHandler returns every registered hospital, optionally filtered by
// state or district for the public portal's hospital picker
func (h Hospital) HospitalsHandler(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if state := r.URL.Query().Get("state"); state != "" {
		filter["hospital.address.state"] = state
	}
	if district := r.URL.Query().Get("district"); district != "" {
		filter["hospital.address.district"] = district
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.DB.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "hospital.name", Value: 1}}))
	if err != nil {
		config.ErrorStatus("failed to get hospitals", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Hospital{}
	}
	res, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res)
}

// HospitalByIDHandler returns one hospital record
func (h Hospital) HospitalByIDHandler(w http.ResponseWriter, r *http.Request) {
	hospitalID := mux.Vars(r)["hospital_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.DB.FindOne(ctx, bson.M{"hospital.hospitalId": hospitalID})
	if err != nil {
		config.ErrorStatus("failed to get hospital by ID", http.StatusNotFound, w, err)
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
