package models

// Hospital holds the structure for the hospitals collection in mongo
type Hospital struct {
	ID      string          `json:"_id" bson:"_id"`
	Details HospitalDetails `json:"hospital" bson:"hospital"`
	Version int32           `json:"__v" bson:"__v"`
}

// HospitalDetails holds the structure for the inner hospital structure as
// defined in the hospitals collection in mongo
type HospitalDetails struct {
	HospitalID          string      `json:"hospitalId" bson:"hospitalId"`
	Name                string      `json:"name" bson:"name"`
	Address             Address     `json:"address" bson:"address"`
	Contact             string      `json:"contact" bson:"contact"`
	Location            GeoPoint    `json:"location" bson:"location"`
	Services            []string    `json:"services" bson:"services"`
	Facilities          []string    `json:"facilities" bson:"facilities"`
	Password            string      `json:"-" bson:"password"`
	ForcePasswordChange bool        `json:"forcePasswordChange" bson:"forcePasswordChange"`
	CreatedAt           interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt           interface{} `json:"updatedAt" bson:"updatedAt"`
}

// Address holds the postal address block for a hospital
type Address struct {
	State    string `json:"state" bson:"state"`
	District string `json:"district" bson:"district"`
	City     string `json:"city" bson:"city"`
	Street   string `json:"street" bson:"street"`
}

// HospitalRecommendation is one candidate in a transfer recommendation response
type HospitalRecommendation struct {
	HospitalID string `json:"hospitalId"`
	Name       string `json:"name"`
	Vacant     int64  `json:"vacant"`
}
