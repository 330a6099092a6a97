package lifecycle

import "github.com/aquasafe179-rgb/rapidcareBeta/models"

// One payload type per named transition. Handlers decode request bodies into
// these with unknown fields disallowed, so a transition only ever carries the
// fields its contract names.

// CreateRequest is the submission payload for both the public portal and the
// ambulance terminal
type CreateRequest struct {
	Patient       models.Patient `json:"patient"`
	HospitalID    string         `json:"hospitalId"`
	TransportMode string         `json:"transportMode"`
	Remarks       string         `json:"remarks"`
}

// AcceptRequest moves Pending -> Accepted
type AcceptRequest struct {
	Remarks         string `json:"remarks"`
	Assisted        bool   `json:"assisted"`
	AssistedComment string `json:"assistedComment"`
}

// RejectRequest moves Pending -> Rejected; the reason is mandatory
type RejectRequest struct {
	RejectionReason    string   `json:"rejectionReason"`
	AlternateHospitals []string `json:"alternateHospitals"`
}

// TransferRequest moves Pending -> Transferred; the target hospital is mandatory
type TransferRequest struct {
	SelectedHospital   string   `json:"selectedHospital"`
	AlternateHospitals []string `json:"alternateHospitals"`
	TransferReason     string   `json:"transferReason"`
}

// HandledRequest moves Accepted -> Handled, ambulance side
type HandledRequest struct {
	HandledComment string `json:"handledComment"`
}

// AdmitRequest moves Accepted -> Admitted and books the bed
type AdmitRequest struct {
	BedID string `json:"bedId"`
}

// ReplyRequest attaches a free-text reply while moving to the caller-supplied
// target status; both status and message are mandatory
type ReplyRequest struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
	RepliedBy string `json:"repliedBy"`
}

// StatusRequest is the generic status move used by the reception dashboard
type StatusRequest struct {
	Status             string   `json:"status"`
	Reason             string   `json:"reason"`
	AlternateHospitals []string `json:"alternateHospitals"`
	SelectedHospital   string   `json:"selectedHospital"`
	Remarks            string   `json:"remarks"`
}
