package geolocation

import "time"

// Position represents a normalized reading from a location provider.
// Latitude, Longitude and Accuracy are always present on a successful
// reading; the remaining fields are nil when the source cannot supply them.
type Position struct {
	Latitude         float64
	Longitude        float64
	Accuracy         float64 // Estimated horizontal accuracy in meters
	Altitude         *float64
	AltitudeAccuracy *float64
	Heading          *float64 // Direction of travel in degrees from true north
	Speed            *float64 // Ground speed in meters per second
	Timestamp        time.Time
}

// Options configures how a provider acquires a position.
type Options struct {
	// HighAccuracy requests the best available fix. For GPS hardware this
	// rejects invalid fixes and bounds the dilution of precision; network
	// providers treat it as a hint.
	HighAccuracy bool
}

// Update is a single item on a watch stream. Exactly one of Position or
// Err is meaningful.
type Update struct {
	Position Position
	Err      error
}
