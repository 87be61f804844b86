package geolocation

import (
	"testing"

	"github.com/adrianmo/go-nmea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixState_PositionFromParsedGGA(t *testing.T) {
	sentence, err := nmea.Parse("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	require.NoError(t, err)

	gga, ok := sentence.(nmea.GGA)
	require.True(t, ok)

	var state fixState
	pos, ok := state.position(gga, Options{})
	require.True(t, ok)

	assert.InDelta(t, 48.1173, pos.Latitude, 0.0001)
	assert.InDelta(t, 11.5167, pos.Longitude, 0.0001)
	assert.InDelta(t, 4.5, pos.Accuracy, 0.001)
	require.NotNil(t, pos.Altitude)
	assert.InDelta(t, 545.4, *pos.Altitude, 0.001)

	// No RMC or GSA seen yet, so the optional fields stay null
	assert.Nil(t, pos.Speed)
	assert.Nil(t, pos.Heading)
	assert.Nil(t, pos.AltitudeAccuracy)
	assert.False(t, pos.Timestamp.IsZero())
}

func TestFixState_RejectsInvalidFix(t *testing.T) {
	var state fixState

	_, ok := state.position(nmea.GGA{FixQuality: nmea.Invalid}, Options{})
	assert.False(t, ok)
}

func TestFixState_HighAccuracyRejectsPoorHDOP(t *testing.T) {
	var state fixState
	gga := nmea.GGA{FixQuality: nmea.GPS, Latitude: 48.1, Longitude: 11.5, HDOP: 3.5}

	_, ok := state.position(gga, Options{HighAccuracy: true})
	assert.False(t, ok)

	// The same fix is acceptable without the high accuracy constraint
	pos, ok := state.position(gga, Options{})
	assert.True(t, ok)
	assert.InDelta(t, 17.5, pos.Accuracy, 0.001)
}

func TestFixState_EnrichesWithRMCAndGSA(t *testing.T) {
	var state fixState
	state.apply(nmea.RMC{Validity: nmea.ValidRMC, Speed: 10, Course: 84.4})
	state.apply(nmea.GSA{VDOP: 1.2})

	pos, ok := state.position(nmea.GGA{FixQuality: nmea.GPS, Latitude: 48.1, Longitude: 11.5, HDOP: 0.9}, Options{})
	require.True(t, ok)

	require.NotNil(t, pos.Speed)
	assert.InDelta(t, 5.14444, *pos.Speed, 0.0001)
	require.NotNil(t, pos.Heading)
	assert.InDelta(t, 84.4, *pos.Heading, 0.001)
	require.NotNil(t, pos.AltitudeAccuracy)
	assert.InDelta(t, 6.0, *pos.AltitudeAccuracy, 0.001)
}

func TestFixState_IgnoresInvalidRMC(t *testing.T) {
	var state fixState
	state.apply(nmea.RMC{Validity: nmea.InvalidRMC, Speed: 10})

	pos, ok := state.position(nmea.GGA{FixQuality: nmea.GPS, Latitude: 48.1, Longitude: 11.5, HDOP: 0.9}, Options{})
	assert.True(t, ok)
	assert.Nil(t, pos.Speed)
}
