package notifier

// Room name builders. Room naming matches what the frontend subscribes to.
func HospitalRoom(hospitalID string) string {
	return "hospital_" + hospitalID
}

// AmbulanceRoom returns the room a single ambulance terminal listens on
func AmbulanceRoom(ambulanceID string) string {
	return "ambulance_" + ambulanceID
}

// Events delivered to hospital rooms, ambulance rooms, or broadcast to every
// connected session (the public portal listens on the broadcast set).
const (
	EventEmergencyNewPublic      = "emergency:new:public"
	EventEmergencyNewAmbulance   = "emergency:new:ambulance"
	EventEmergencyUpdate         = "emergency:update"
	EventEmergencyResponse       = "emergency:response"
	EventEmergencyHandled        = "emergency:handled"
	EventEmergencyReplyPublic    = "emergency:reply:public"
	EventEmergencyReplyAmbulance = "emergency:reply:ambulance"
	EventBedUpdate               = "bed:update"
	EventBedPublicUpdate         = "bed:publicUpdate"
	EventAmbulanceLocation       = "ambulance:location"
	EventAmbulanceStatusUpdate   = "ambulance:statusUpdate"
	EventJoinDenied              = "join:denied"
)
