package constants

// Heartbeat statuses
const (
	// StatusAlive indicates the agent is running normally
	StatusAlive = "alive"
)

// Middleware names
const (
	AUTHENTICATION_MIDDLEWARE = "authentication"
)

// Registration retry defaults, in seconds.
const (
	DefaultRegistrationBaseDelay  = 2
	DefaultRegistrationMaxBackoff = 60
)
