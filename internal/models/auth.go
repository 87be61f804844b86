package models

// AuthRequest is sent to the authentication topic to obtain or refresh a JWT.
type AuthRequest struct {
	DeviceID     string `json:"device_id,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	Key          []byte `json:"key,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// AuthResponse represents the expected structure of the authentication response.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// WrappedPayload represents the final structure sent over MQTT.
type WrappedPayload struct {
	JWT     string      `json:"jwt"`
	Payload interface{} `json:"payload"`
}
