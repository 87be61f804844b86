package models

import "time"

// PositionRequest is a bridge call received on the geolocation request topic.
type PositionRequest struct {
	// Action selects the operation: getLocation, addWatch or clearWatch.
	Action string `json:"action"`

	// ClientID identifies the caller; watch registrations are keyed by it
	// and responses are routed to its response topic.
	ClientID string `json:"client_id"`

	// HighAccuracy requests the best available fix (may use more power).
	HighAccuracy bool `json:"high_accuracy,omitempty"`

	// MaximumAgeMs allows getLocation to answer from the last fix when it
	// is at most this many milliseconds old.
	MaximumAgeMs int64 `json:"maximum_age_ms,omitempty"`
}

// PositionResult is a normalized successful position published to a client.
// Latitude and longitude are always present; the remaining measurements are
// null when the source cannot supply them.
type PositionResult struct {
	DeviceID         string    `json:"device_id"`
	ClientID         string    `json:"client_id"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Accuracy         float64   `json:"accuracy"`
	Altitude         *float64  `json:"altitude"`
	AltitudeAccuracy *float64  `json:"altitude_accuracy"`
	Heading          *float64  `json:"heading"`
	Speed            *float64  `json:"speed"`
	Timestamp        time.Time `json:"timestamp"`
}

// PositionFailure reports a failed bridge call or a failing watch with a
// portable error code and the native failure message.
type PositionFailure struct {
	DeviceID string `json:"device_id"`
	ClientID string `json:"client_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}
