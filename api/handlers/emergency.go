package handlers

import (
	"encoding/json"
	"net/http"

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
)

// myRequestsLimit caps the ambulance terminal history view
const myRequestsLimit = 50

// Emergency exported for testing purposes
type Emergency struct {
	DB     databases.EmergencyDatabase
	HDB    databases.HospitalDatabase
	BDB    databases.BedDatabase
	Engine *lifecycle.Engine
}

func decodeStrict(r *http.Request, v interface{}) error {
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	return d.Decode(v)
}

func writeEmergency(w http.ResponseWriter, status int, em *models.Emergency) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"emergency": em,
	})
}

func writeLifecycleError(message string, w http.ResponseWriter, err error) {
	config.ErrorStatus(message, lifecycle.HTTPStatus(err), w, err)
}

// CreatePublicHandler creates a new emergency request from the public portal
func (e Emergency) CreatePublicHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var requestBody lifecycle.CreateRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.Create(r.Context(), models.SubmitterPublic, nil, requestBody)
	if err != nil {
		writeLifecycleError("failed to submit emergency request", w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"message":   "Emergency request submitted. Hospital will contact you shortly.",
		"emergency": em,
	})
}

// CreateHandler creates a new emergency request from an ambulance terminal
// (or a hospital filing against itself)
func (e Emergency) CreateHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody lifecycle.CreateRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.Create(r.Context(), models.SubmitterAmbulance, &identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to submit emergency request", w, err)
		return
	}
	writeEmergency(w, http.StatusCreated, em)
}

// EmergencyByIDHandler returns an emergency request by ID
func (e Emergency) EmergencyByIDHandler(w http.ResponseWriter, r *http.Request) {
	emID := mux.Vars(r)["emergency_id"]

	zap.S().Debugf("emergency_id: %v", emID)

	eID, err := primitive.ObjectIDFromHex(emID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := e.DB.FindOne(ctx, bson.M{"_id": eID})
	if err != nil {
		config.ErrorStatus("failed to get emergency by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// PublicDetailHandler returns the safe subset of an emergency request used by
// the unauthenticated tracking page
func (e Emergency) PublicDetailHandler(w http.ResponseWriter, r *http.Request) {
	emID := mux.Vars(r)["emergency_id"]

	eID, err := primitive.ObjectIDFromHex(emID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := e.DB.FindOne(ctx, bson.M{"_id": eID})
	if err != nil {
		config.ErrorStatus("failed to get emergency by ID", http.StatusNotFound, w, err)
		return
	}

	rejection := dbResp.Details.RejectionReason
	if rejection == "" {
		rejection = dbResp.Details.Reason
	}
	alternates := dbResp.Details.AlternateHospitals
	if alternates == nil {
		alternates = []string{}
	}
	safe := models.EmergencyDetailPublic{
		ID:                 dbResp.ID,
		CreatedAt:          dbResp.Details.CreatedAt,
		UpdatedAt:          dbResp.Details.UpdatedAt,
		Status:             dbResp.Details.Status,
		HospitalID:         dbResp.Details.HospitalID,
		RejectionReason:    rejection,
		AlternateHospitals: alternates,
		SelectedHospital:   dbResp.Details.SelectedHospital,
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"emergency": safe,
	})
}

func (e Emergency) listByFilter(w http.ResponseWriter, r *http.Request, filter bson.M, opts ...*options.FindOptions) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := e.DB.Find(ctx, filter, opts...)
	if err != nil {
		config.ErrorStatus("failed to get emergency requests", http.StatusNotFound, w, err)
		return
	}
	// the frontend requires the data elements to exist, so an empty result
	// returns an empty array
	if len(dbResp) == 0 {
		dbResp = []models.Emergency{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// scopeHospital rejects a hospital caller reading another hospital's queue
func scopeHospital(w http.ResponseWriter, r *http.Request, hospitalID string) bool {
	if identity, ok := api.IdentityFromRequest(r); ok {
		if identity.Role == models.RoleHospital && identity.Ref != hospitalID {
			config.ErrorStatus("forbidden", http.StatusForbidden, w, lifecycle.NewForbiddenError("hospital %s cannot read another hospital's requests", identity.Ref))
			return false
		}
	}
	return true
}

// EmergenciesByHospitalHandler returns all emergency requests targeting a hospital
func (e Emergency) EmergenciesByHospitalHandler(w http.ResponseWriter, r *http.Request) {
	hospitalID := mux.Vars(r)["hospital_id"]
	if !scopeHospital(w, r, hospitalID) {
		return
	}
	zap.S().Debugf("hospital_id: '%v'", hospitalID)
	e.listByFilter(w, r, bson.M{"emergency.hospitalId": hospitalID},
		options.Find().SetSort(bson.D{{Key: "emergency.createdAt", Value: -1}}))
}

// PublicEmergenciesByHospitalHandler returns the public-submitted queue for a hospital
func (e Emergency) PublicEmergenciesByHospitalHandler(w http.ResponseWriter, r *http.Request) {
	hospitalID := mux.Vars(r)["hospital_id"]
	if !scopeHospital(w, r, hospitalID) {
		return
	}
	e.listByFilter(w, r, bson.M{"emergency.hospitalId": hospitalID, "emergency.submittedBy": models.SubmitterPublic},
		options.Find().SetSort(bson.D{{Key: "emergency.createdAt", Value: -1}}))
}

// AmbulanceEmergenciesByHospitalHandler returns the ambulance-submitted queue for a hospital
func (e Emergency) AmbulanceEmergenciesByHospitalHandler(w http.ResponseWriter, r *http.Request) {
	hospitalID := mux.Vars(r)["hospital_id"]
	if !scopeHospital(w, r, hospitalID) {
		return
	}
	e.listByFilter(w, r, bson.M{"emergency.hospitalId": hospitalID, "emergency.submittedBy": models.SubmitterAmbulance},
		options.Find().SetSort(bson.D{{Key: "emergency.createdAt", Value: -1}}))
}

// MyRequestsHandler returns the recent requests filed by the calling ambulance
func (e Emergency) MyRequestsHandler(w http.ResponseWriter, r *http.Request) {
	ambulanceID := mux.Vars(r)["ambulance_id"]
	identity, _ := api.IdentityFromRequest(r)
	if identity.Ref != ambulanceID {
		config.ErrorStatus("access denied", http.StatusForbidden, w, lifecycle.NewForbiddenError("ambulance %s cannot read another ambulance's requests", identity.Ref))
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	limit := int64(myRequestsLimit)
	dbResp, err := e.DB.Find(ctx, bson.M{"emergency.ambulanceId": ambulanceID},
		options.Find().SetSort(bson.D{{Key: "emergency.createdAt", Value: -1}}).SetLimit(limit))
	if err != nil {
		config.ErrorStatus("failed to get ambulance requests", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Emergency{}
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"requests": dbResp,
	})
}

// RecommendHandler ranks nearby hospitals in the same state by vacant bed count
func (e Emergency) RecommendHandler(w http.ResponseWriter, r *http.Request) {
	hospitalID := mux.Vars(r)["hospital_id"]
	bedType := r.URL.Query().Get("bedType")
	if bedType == "" {
		bedType = models.BedTypeGeneral
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	hospital, err := e.HDB.FindOne(ctx, bson.M{"hospital.hospitalId": hospitalID})
	if err != nil {
		config.ErrorStatus("failed to get hospital", http.StatusNotFound, w, err)
		return
	}

	candidates, err := e.HDB.Find(ctx, bson.M{
		"hospital.address.state": hospital.Details.Address.State,
		"hospital.hospitalId":    bson.M{"$ne": hospitalID},
	})
	if err != nil {
		config.ErrorStatus("failed to get candidate hospitals", http.StatusNotFound, w, err)
		return
	}

	result := []models.HospitalRecommendation{}
	for _, h := range candidates {
		vacant, err := e.BDB.CountDocuments(ctx, bson.M{
			"bed.hospitalId": h.Details.HospitalID,
			"bed.bedType":    bedType,
			"bed.status":     models.BedVacant,
		})
		if err != nil {
			zap.S().Warnw("failed to count vacant beds", "hospitalId", h.Details.HospitalID, "error", err)
			continue
		}
		if vacant > 0 {
			result = append(result, models.HospitalRecommendation{
				HospitalID: h.Details.HospitalID,
				Name:       h.Details.Name,
				Vacant:     vacant,
			})
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"candidates": result})
}

// AcceptHandler accepts a pending emergency request
func (e Emergency) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody lifecycle.AcceptRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.Accept(r.Context(), mux.Vars(r)["emergency_id"], identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to accept emergency request", w, err)
		return
	}
	writeEmergency(w, http.StatusOK, em)
}

// RejectHandler rejects a pending emergency request
func (e Emergency) RejectHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody lifecycle.RejectRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.Reject(r.Context(), mux.Vars(r)["emergency_id"], identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to reject emergency request", w, err)
		return
	}
	writeEmergency(w, http.StatusOK, em)
}

// TransferHandler transfers a pending emergency request to another hospital
func (e Emergency) TransferHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody lifecycle.TransferRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.Transfer(r.Context(), mux.Vars(r)["emergency_id"], identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to transfer emergency request", w, err)
		return
	}
	writeEmergency(w, http.StatusOK, em)
}

// StatusHandler is the generic dashboard status move
func (e Emergency) StatusHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody lifecycle.StatusRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.UpdateStatus(r.Context(), mux.Vars(r)["emergency_id"], identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to update emergency status", w, err)
		return
	}
	writeEmergency(w, http.StatusOK, em)
}

// ReplyHandler attaches a hospital reply while moving the request status
func (e Emergency) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody lifecycle.ReplyRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.Reply(r.Context(), mux.Vars(r)["emergency_id"], identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to reply to emergency request", w, err)
		return
	}
	writeEmergency(w, http.StatusOK, em)
}

// HandledHandler lets the owning ambulance close out its run
func (e Emergency) HandledHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody lifecycle.HandledRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.MarkHandled(r.Context(), mux.Vars(r)["emergency_id"], identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to mark emergency request handled", w, err)
		return
	}
	writeEmergency(w, http.StatusOK, em)
}

// PrepInfoHandler records en-route vitals from the owning ambulance
func (e Emergency) PrepInfoHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody models.PrepInfo
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, err := e.Engine.SetPrepInfo(r.Context(), mux.Vars(r)["emergency_id"], identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to update prep info", w, err)
		return
	}
	writeEmergency(w, http.StatusOK, em)
}

// ReadyToServeHandler marks the receiving team ready for the incoming patient
func (e Emergency) ReadyToServeHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	em, err := e.Engine.SetReadyToServe(r.Context(), mux.Vars(r)["emergency_id"], identity)
	if err != nil {
		writeLifecycleError("failed to set ready to serve", w, err)
		return
	}
	writeEmergency(w, http.StatusOK, em)
}

// AdmitHandler books a bed and admits the patient
func (e Emergency) AdmitHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	var requestBody lifecycle.AdmitRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	em, bed, err := e.Engine.Admit(r.Context(), mux.Vars(r)["emergency_id"], identity, requestBody)
	if err != nil {
		writeLifecycleError("failed to admit patient", w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"emergency": em,
		"bed":       bed,
	})
}

// DischargeHandler releases the bed and discharges the patient
func (e Emergency) DischargeHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromRequest(r)
	em, bed, err := e.Engine.Discharge(r.Context(), mux.Vars(r)["emergency_id"], identity)
	if err != nil {
		writeLifecycleError("failed to discharge patient", w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"emergency": em,
		"bed":       bed,
	})
}
