package services_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/geobridge/geo-agent/internal/models"
	"github.com/geobridge/geo-agent/internal/services"
	"github.com/geobridge/geo-agent/tests/mocks"
)

// TestStatusService_PublishStatus_Success verifies the snapshot payload.
func TestStatusService_PublishStatus_Success(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	mockDeviceInfo.On("GetDeviceID").Return("test-device-id")

	var captured []byte
	mockMiddleware.On("Publish", "test-topic", byte(0), false, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(3).([]byte)
		}).
		Return(nil)

	s := services.NewStatusService(
		"test-topic",
		1*time.Second,
		0,
		"gps",
		mockDeviceInfo,
		mockMiddleware,
		zerolog.Nop(),
	)

	err := s.PublishStatus()
	assert.NoError(t, err)

	var status models.DeviceStatus
	assert.NoError(t, json.Unmarshal(captured, &status))
	assert.Equal(t, "test-device-id", status.DeviceID)
	assert.Equal(t, "gps", status.LocationSource)
	assert.False(t, status.Timestamp.IsZero())

	mockMiddleware.AssertExpectations(t)
}

// TestStatusService_StartStop tests the service lifecycle.
func TestStatusService_StartStop(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	s := services.NewStatusService(
		"test-topic",
		1*time.Second,
		0,
		"network",
		mockDeviceInfo,
		mockMiddleware,
		zerolog.Nop(),
	)

	assert.NoError(t, s.Start())

	err := s.Start()
	assert.Error(t, err)
	assert.Equal(t, "status service is already running", err.Error())

	assert.NoError(t, s.Stop())

	err = s.Stop()
	assert.Error(t, err)
	assert.Equal(t, "status service is not running", err.Error())
}
