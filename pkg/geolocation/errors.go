package geolocation

import (
	"errors"
	"os"
	"strings"
)

// Code is a portable error code understood by every bridge client,
// mirroring the conventional geolocation API error enumeration.
type Code string

const (
	// PermissionDenied indicates the caller or the agent is not allowed to
	// access the location source.
	PermissionDenied Code = "PERMISSION_DENIED"

	// PositionUnavailable indicates the location source could not produce
	// a position (no fix, sensor missing, service unreachable).
	PositionUnavailable Code = "POSITION_UNAVAILABLE"
)

// ErrNoFix is returned when the GPS stream ended without a usable fix.
var ErrNoFix = errors.New("no valid GPS fix available")

// PositionError pairs a portable code with the native failure message.
type PositionError struct {
	Code    Code
	Message string
	Err     error
}

// Error returns the native failure message.
func (e *PositionError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying native error.
func (e *PositionError) Unwrap() error {
	return e.Err
}

// NewPositionError builds a PositionError with the given portable code.
func NewPositionError(code Code, message string, err error) *PositionError {
	return &PositionError{Code: code, Message: message, Err: err}
}

// Classify maps a native provider failure onto a portable code. Permission
// failures from the OS or from a geolocation API become PermissionDenied;
// everything else becomes PositionUnavailable with the native message
// preserved verbatim. Errors are surfaced, never retried.
func Classify(err error) *PositionError {
	var posErr *PositionError
	if errors.As(err, &posErr) {
		return posErr
	}

	if isPermissionError(err) {
		return NewPositionError(PermissionDenied, err.Error(), err)
	}

	return NewPositionError(PositionUnavailable, err.Error(), err)
}

// isPermissionError detects access failures: the OS refusing the sensor
// device node, or an API rejecting the agent's credentials.
func isPermissionError(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "REQUEST_DENIED") ||
		strings.Contains(msg, "permission denied")
}
