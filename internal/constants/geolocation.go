package constants

// AgentVersion is the semantic version of this agent build, reported during
// registration and compared against the backend's minimum supported version.
const AgentVersion = "1.2.0"

// Bridge actions accepted on the geolocation request topic.
const (
	// ActionGetLocation requests a single position fix.
	ActionGetLocation = "getLocation"
	// ActionAddWatch starts a continuous position stream for a client.
	ActionAddWatch = "addWatch"
	// ActionClearWatch stops the stream registered for a client.
	ActionClearWatch = "clearWatch"
)

// Location sources selectable in the configuration.
const (
	// SourceGPS reads NMEA sentences from serial GPS hardware.
	SourceGPS = "gps"
	// SourceNetwork resolves position through the Google Geolocation API.
	SourceNetwork = "network"
)

const (
	// DefaultRequestTimeout bounds a single getLocation acquisition, in seconds.
	DefaultRequestTimeout = 30
	// DefaultDispatchWorkers is the size of the bridge call worker pool.
	DefaultDispatchWorkers = 4
)
