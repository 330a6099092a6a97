package models

// Emergency request statuses. Denied is a legacy alias of Rejected kept so old
// documents still decode; writers only ever produce Rejected.
const (
	StatusPending     = "Pending"
	StatusAccepted    = "Accepted"
	StatusRejected    = "Rejected"
	StatusDenied      = "Denied"
	StatusTransferred = "Transferred"
	StatusHandled     = "Handled"
	StatusAdmitted    = "Admitted"
	StatusDischarged  = "Discharged"
)

// Submitter kinds for an emergency request
const (
	SubmitterPublic    = "public"
	SubmitterAmbulance = "ambulance"
)

// Emergency holds the structure for the emergencies collection in mongo
type Emergency struct {
	ID      string           `json:"_id" bson:"_id"`
	Details EmergencyDetails `json:"emergency" bson:"emergency"`
	Version int32            `json:"__v" bson:"__v"`
}

// EmergencyDetails holds the structure for the inner emergency structure as
// defined in the emergencies collection in mongo
type EmergencyDetails struct {
	Patient            Patient     `json:"patient" bson:"patient"`
	HospitalID         string      `json:"hospitalId" bson:"hospitalId"`
	AmbulanceID        string      `json:"ambulanceId" bson:"ambulanceId"`
	BedID              string      `json:"bedId" bson:"bedId"`
	Status             string      `json:"status" bson:"status"`
	SubmittedBy        string      `json:"submittedBy" bson:"submittedBy"`
	Reason             string      `json:"reason" bson:"reason"`
	RejectionReason    string      `json:"rejectionReason" bson:"rejectionReason"`
	AlternateHospitals []string    `json:"alternateHospitals" bson:"alternateHospitals"`
	SelectedHospital   string      `json:"selectedHospital" bson:"selectedHospital"`
	TransferReason     string      `json:"transferReason" bson:"transferReason"`
	TransportMode      string      `json:"transportMode" bson:"transportMode"`
	Remarks            string      `json:"remarks" bson:"remarks"`
	Assisted           bool        `json:"assisted" bson:"assisted"`
	AssistedComment    string      `json:"assistedComment" bson:"assistedComment"`
	HandledBy          string      `json:"handledBy" bson:"handledBy"`
	Handled            bool        `json:"handled" bson:"handled"`
	HandledAt          interface{} `json:"handledAt" bson:"handledAt"`
	HandledComment     string      `json:"handledComment" bson:"handledComment"`
	ReplyMessage       string      `json:"replyMessage" bson:"replyMessage"`
	ReplyReason        string      `json:"replyReason" bson:"replyReason"`
	RepliedBy          string      `json:"repliedBy" bson:"repliedBy"`
	RepliedAt          interface{} `json:"repliedAt" bson:"repliedAt"`
	ResponseTime       interface{} `json:"responseTime" bson:"responseTime"`
	PrepInfo           PrepInfo    `json:"prepInfo" bson:"prepInfo"`
	IsReadyToServe     bool        `json:"isReadyToServe" bson:"isReadyToServe"`
	EmtName            string      `json:"emtName" bson:"emtName"`
	EmtID              string      `json:"emtId" bson:"emtId"`
	EmtMobile          string      `json:"emtMobile" bson:"emtMobile"`
	PilotName          string      `json:"pilotName" bson:"pilotName"`
	PilotID            string      `json:"pilotId" bson:"pilotId"`
	PilotMobile        string      `json:"pilotMobile" bson:"pilotMobile"`
	CreatedAt          interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt          interface{} `json:"updatedAt" bson:"updatedAt"`
}

// Patient holds the patient descriptor attached to an emergency request
type Patient struct {
	Name           string `json:"name" bson:"name"`
	Age            int    `json:"age" bson:"age"`
	Gender         string `json:"gender" bson:"gender"`
	Symptoms       string `json:"symptoms" bson:"symptoms"`
	EmergencyType  string `json:"emergencyType" bson:"emergencyType"`
	ContactMobile  string `json:"contactMobile" bson:"contactMobile"`
	ContactAddress string `json:"contactAddress" bson:"contactAddress"`
}

// PrepInfo holds the en-route preparation block settable only by the owning ambulance
type PrepInfo struct {
	Vitals           string `json:"vitals" bson:"vitals"`
	PatientCondition string `json:"patientCondition" bson:"patientCondition"`
	Eta              string `json:"eta" bson:"eta"`
	Remarks          string `json:"remarks" bson:"remarks"`
}

// EmergencyDetailPublic is the safe subset of an emergency request returned to
// unauthenticated status-tracking pages
type EmergencyDetailPublic struct {
	ID                 string      `json:"_id"`
	CreatedAt          interface{} `json:"createdAt"`
	UpdatedAt          interface{} `json:"updatedAt"`
	Status             string      `json:"status"`
	HospitalID         string      `json:"hospitalId"`
	RejectionReason    string      `json:"rejectionReason"`
	AlternateHospitals []string    `json:"alternateHospitals"`
	SelectedHospital   string      `json:"selectedHospital"`
}
