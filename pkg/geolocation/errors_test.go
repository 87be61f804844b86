package geolocation_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geobridge/geo-agent/pkg/geolocation"
)

func TestClassify_OSPermissionError(t *testing.T) {
	err := fmt.Errorf("open /dev/ttyUSB0: %w", os.ErrPermission)

	perr := geolocation.Classify(err)
	assert.Equal(t, geolocation.PermissionDenied, perr.Code)
	assert.Contains(t, perr.Message, "permission denied")
	assert.True(t, errors.Is(perr, os.ErrPermission))
}

func TestClassify_APIRequestDenied(t *testing.T) {
	err := errors.New("maps: REQUEST_DENIED - the provided API key is invalid")

	perr := geolocation.Classify(err)
	assert.Equal(t, geolocation.PermissionDenied, perr.Code)
}

func TestClassify_GenericErrorIsUnavailable(t *testing.T) {
	err := errors.New("serial device read failed")

	perr := geolocation.Classify(err)
	assert.Equal(t, geolocation.PositionUnavailable, perr.Code)
	// The native message must survive classification verbatim
	assert.Equal(t, "serial device read failed", perr.Message)
}

func TestClassify_NoFix(t *testing.T) {
	perr := geolocation.Classify(geolocation.ErrNoFix)
	assert.Equal(t, geolocation.PositionUnavailable, perr.Code)
	assert.True(t, errors.Is(perr, geolocation.ErrNoFix))
}

func TestClassify_PassesThroughPositionError(t *testing.T) {
	original := geolocation.NewPositionError(geolocation.PermissionDenied, "agent is not authorized", nil)
	wrapped := fmt.Errorf("request failed: %w", original)

	perr := geolocation.Classify(wrapped)
	assert.Same(t, original, perr)
}
