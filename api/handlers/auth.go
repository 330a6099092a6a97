package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aquasafe179-rgb/rapidcareBeta/api"
	"github.com/aquasafe179-rgb/rapidcareBeta/config"
	"github.com/aquasafe179-rgb/rapidcareBeta/databases"
	"github.com/aquasafe179-rgb/rapidcareBeta/lifecycle"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
	"github.com/aquasafe179-rgb/rapidcareBeta/notifier"
)

// Auth exported for testing purposes
type Auth struct {
	HDB      databases.HospitalDatabase
	ADB      databases.AmbulanceDatabase
	Notifier notifier.Publisher
}

// LoginRequest carries the credentials for either portal. Username is the
// hospitalId for hospitals; for ambulances it matches the ambulanceId or a
// crew member id.
type LoginRequest struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func invalidCredentials(w http.ResponseWriter, err error) {
	config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, err)
}

// LoginHandler checks credentials against the role's collection and issues a
// bearer token scoped to the caller's hospital or ambulance
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody LoginRequest
	if err := decodeStrict(r, &requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	switch requestBody.Role {
	case models.RoleHospital:
		a.loginHospital(w, r, requestBody)
	case models.RoleAmbulance:
		a.loginAmbulance(w, r, requestBody)
	default:
		config.ErrorStatus("invalid role", http.StatusBadRequest, w,
			lifecycle.NewValidationError("role must be hospital or ambulance, got %q", requestBody.Role))
	}
}

func (a Auth) loginHospital(w http.ResponseWriter, r *http.Request, req LoginRequest) {
	hospital, err := a.HDB.FindOne(r.Context(), bson.M{"hospital.hospitalId": req.Username})
	if err != nil {
		invalidCredentials(w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hospital.Details.Password), []byte(req.Password)); err != nil {
		invalidCredentials(w, err)
		return
	}

	identity := models.Identity{
		Role:      models.RoleHospital,
		SubjectID: hospital.ID,
		Ref:       hospital.Details.HospitalID,
	}
	token, err := api.SignToken(identity)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"token":   token,
		"role":    models.RoleHospital,
		"ref":     hospital.Details.HospitalID,
		"name":    hospital.Details.Name,
	})
}

func (a Auth) loginAmbulance(w http.ResponseWriter, r *http.Request, req LoginRequest) {
	ambulance, err := a.ADB.FindOne(r.Context(), bson.M{"$or": []bson.M{
		{"ambulance.ambulanceId": req.Username},
		{"ambulance.pilot.memberId": req.Username},
		{"ambulance.emt.memberId": req.Username},
	}})
	if err != nil {
		invalidCredentials(w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ambulance.Details.Password), []byte(req.Password)); err != nil {
		invalidCredentials(w, err)
		return
	}

	identity := models.Identity{
		Role:      models.RoleAmbulance,
		SubjectID: ambulance.ID,
		Ref:       ambulance.Details.AmbulanceID,
	}
	token, err := api.SignToken(identity)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	// a fresh login puts the terminal back on duty
	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	updated, err := a.ADB.UpdateOne(r.Context(),
		bson.M{"ambulance.ambulanceId": ambulance.Details.AmbulanceID},
		bson.M{"$set": bson.M{
			"ambulance.status":    models.AmbulanceOnDuty,
			"ambulance.lastLogin": now,
			"ambulance.updatedAt": now,
		}})
	if err != nil {
		zap.S().Warnw("failed to stamp ambulance login", "ambulanceId", ambulance.Details.AmbulanceID, "error", err)
	} else {
		ambulance = updated
		a.Notifier.Publish(notifier.HospitalRoom(ambulance.Details.HospitalID), notifier.EventAmbulanceStatusUpdate, map[string]interface{}{
			"ambulanceId": ambulance.Details.AmbulanceID,
			"status":      models.AmbulanceOnDuty,
		})
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":             true,
		"token":               token,
		"role":                models.RoleAmbulance,
		"ref":                 ambulance.Details.AmbulanceID,
		"hospitalId":          ambulance.Details.HospitalID,
		"forcePasswordChange": ambulance.Details.ForcePasswordChange,
	})
}
