package services_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/geobridge/geo-agent/internal/models"
	"github.com/geobridge/geo-agent/internal/services"
	"github.com/geobridge/geo-agent/tests/mocks"
)

// TestHeartbeatService_Start_Success tests the successful start of the HeartbeatService.
func TestHeartbeatService_Start_Success(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	h := services.NewHeartbeatService(
		"test-topic",
		1*time.Second,
		1,
		mockDeviceInfo,
		mockMiddleware,
		zerolog.Nop(),
	)

	err := h.Start()
	assert.NoError(t, err)

	// Try to start again (should fail)
	err = h.Start()
	assert.Error(t, err)
	assert.Equal(t, "heartbeat service is already running", err.Error())

	err = h.Stop()
	assert.NoError(t, err)
}

// TestHeartbeatService_Stop_Success tests the successful stop of the HeartbeatService.
func TestHeartbeatService_Stop_Success(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	h := services.NewHeartbeatService(
		"test-topic",
		1*time.Second,
		1,
		mockDeviceInfo,
		mockMiddleware,
		zerolog.Nop(),
	)

	err := h.Start()
	assert.NoError(t, err)

	err = h.Stop()
	assert.NoError(t, err)

	// Try to stop again (should fail)
	err = h.Stop()
	assert.Error(t, err)
	assert.Equal(t, "heartbeat service is not running", err.Error())
}

// TestHeartbeatService_PublishHeartbeat_Success verifies the heartbeat payload.
func TestHeartbeatService_PublishHeartbeat_Success(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	mockDeviceInfo.On("GetDeviceID").Return("test-device-id")

	var captured []byte
	mockMiddleware.On("Publish", "test-topic", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(3).([]byte)
		}).
		Return(nil)

	h := services.NewHeartbeatService(
		"test-topic",
		1*time.Second,
		1,
		mockDeviceInfo,
		mockMiddleware,
		zerolog.Nop(),
	)

	err := h.PublishHeartbeat()
	assert.NoError(t, err)

	var heartbeat models.Heartbeat
	assert.NoError(t, json.Unmarshal(captured, &heartbeat))
	assert.Equal(t, "test-device-id", heartbeat.DeviceID)
	assert.Equal(t, "alive", heartbeat.Status)
	assert.False(t, heartbeat.Timestamp.IsZero())

	mockDeviceInfo.AssertExpectations(t)
	mockMiddleware.AssertExpectations(t)
}

// TestHeartbeatService_runHeartbeatLoop_PublishError tests the heartbeat loop with a publishing error.
func TestHeartbeatService_runHeartbeatLoop_PublishError(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	mockDeviceInfo.On("GetDeviceID").Return("test-device-id")
	mockMiddleware.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("publish failed"))

	h := services.NewHeartbeatService(
		"test-topic",
		100*time.Millisecond, // Short interval for testing
		1,
		mockDeviceInfo,
		mockMiddleware,
		zerolog.Nop(),
	)

	err := h.Start()
	assert.NoError(t, err)

	// Wait for at least one heartbeat to be attempted
	time.Sleep(150 * time.Millisecond)

	err = h.Stop()
	assert.NoError(t, err)

	mockDeviceInfo.AssertExpectations(t)
	mockMiddleware.AssertExpectations(t)
}
