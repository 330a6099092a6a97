package models

// Roles carried in bearer token claims
const (
	RoleHospital  = "hospital"
	RoleAmbulance = "ambulance"
)

// Identity is the resolved authenticated caller: its role, the subject id of
// the backing document, and the scope reference (hospitalId or ambulanceId)
// every authorization check compares against.
type Identity struct {
	Role      string `json:"role"`
	SubjectID string `json:"sub"`
	Ref       string `json:"ref"`
}
