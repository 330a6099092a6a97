package models

// Ambulance statuses
const (
	AmbulanceOnDuty    = "On Duty"
	AmbulanceOffline   = "Offline"
	AmbulanceInTransit = "In Transit"
)

// Ambulance holds the structure for the ambulances collection in mongo
type Ambulance struct {
	ID      string           `json:"_id" bson:"_id"`
	Details AmbulanceDetails `json:"ambulance" bson:"ambulance"`
	Version int32            `json:"__v" bson:"__v"`
}

// AmbulanceDetails holds the structure for the inner ambulance structure as
// defined in the ambulances collection in mongo
type AmbulanceDetails struct {
	HospitalID          string      `json:"hospitalId" bson:"hospitalId"`
	AmbulanceID         string      `json:"ambulanceId" bson:"ambulanceId"`
	AmbulanceNumber     string      `json:"ambulanceNumber" bson:"ambulanceNumber"`
	VehicleNumber       string      `json:"vehicleNumber" bson:"vehicleNumber"`
	Pilot               CrewMember  `json:"pilot" bson:"pilot"`
	Emt                 CrewMember  `json:"emt" bson:"emt"`
	Password            string      `json:"-" bson:"password"`
	ForcePasswordChange bool        `json:"forcePasswordChange" bson:"forcePasswordChange"`
	Status              string      `json:"status" bson:"status"`
	Location            GeoPoint    `json:"location" bson:"location"`
	LastLogin           interface{} `json:"lastLogin" bson:"lastLogin"`
	CreatedAt           interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt           interface{} `json:"updatedAt" bson:"updatedAt"`
}

// CrewMember identifies one member of an ambulance crew. MemberID carries the
// pilotId or emtId used as a login username.
type CrewMember struct {
	Name     string `json:"name" bson:"name"`
	Mobile   string `json:"mobile" bson:"mobile"`
	MemberID string `json:"memberId" bson:"memberId"`
}

// GeoPoint is a lat/lng pair
type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}
