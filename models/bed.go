package models

// Bed statuses
const (
	BedVacant      = "Vacant"
	BedOccupied    = "Occupied"
	BedReserved    = "Reserved"
	BedCleaning    = "Cleaning"
	BedMaintenance = "Maintenance"
)

// Bed types
const (
	BedTypeICU     = "ICU"
	BedTypeGeneral = "General"
	BedTypeOther   = "Other"
)

// Bed holds the structure for the beds collection in mongo
type Bed struct {
	ID      string     `json:"_id" bson:"_id"`
	Details BedDetails `json:"bed" bson:"bed"`
	Version int32      `json:"__v" bson:"__v"`
}

// BedDetails holds the structure for the inner bed structure as defined in the
// beds collection in mongo. BedID is the composite hospital-scoped identifier
// (e.g. H1-W2-B05) used by the admit/discharge flows.
type BedDetails struct {
	HospitalID  string      `json:"hospitalId" bson:"hospitalId"`
	BedID       string      `json:"bedId" bson:"bedId"`
	BedNumber   string      `json:"bedNumber" bson:"bedNumber"`
	WardNumber  string      `json:"wardNumber" bson:"wardNumber"`
	BedType     string      `json:"bedType" bson:"bedType"`
	Status      string      `json:"status" bson:"status"`
	LastUpdated interface{} `json:"lastUpdated" bson:"lastUpdated"`
	CreatedAt   interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt   interface{} `json:"updatedAt" bson:"updatedAt"`
}
