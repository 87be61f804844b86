package services_test

import (
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/geobridge/geo-agent/internal/models"
	"github.com/geobridge/geo-agent/internal/services"
	"github.com/geobridge/geo-agent/tests/mocks"
)

// newTestRegistrationService creates a RegistrationService with short timings for tests.
func newTestRegistrationService(mockDeviceInfo *mocks.DeviceInfoInterface,
	mockMiddleware *mocks.MQTTAuthMiddleware) *services.RegistrationService {

	return services.NewRegistrationService(
		"test/registration",
		"test-client",
		1,
		0,
		10*time.Millisecond,
		50*time.Millisecond,
		100*time.Millisecond,
		mockDeviceInfo,
		mockMiddleware,
		zerolog.Nop(),
	)
}

// TestRegistrationService_Register_NewDevice tests registration of a device
// without an existing device ID.
func TestRegistrationService_Register_NewDevice(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	mockDeviceInfo.On("GetDeviceID").Return("")
	mockDeviceInfo.On("SaveDeviceID", "assigned-device-id").Return(nil).Once()

	mockMiddleware.On("Subscribe", "test/registration/response/test-client", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			callback := args.Get(2).(MQTT.MessageHandler)
			response := mocks.NewMockMessage("test/registration/response/test-client",
				[]byte(`{"device_id":"assigned-device-id","min_agent_version":"1.0.0"}`))
			callback(nil, response)
		}).
		Return(nil)
	mockMiddleware.On("Unsubscribe", mock.Anything).Return(nil)
	mockMiddleware.On("Publish", "test/registration", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rs := newTestRegistrationService(mockDeviceInfo, mockMiddleware)

	err := rs.Register(models.RegistrationPayload{ClientID: "test-client", Name: "test-device"})
	assert.NoError(t, err)

	mockDeviceInfo.AssertExpectations(t)
	mockMiddleware.AssertExpectations(t)
}

// TestRegistrationService_Register_ExistingDevice tests re-registration with a
// known device ID, which must not be saved again.
func TestRegistrationService_Register_ExistingDevice(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	mockDeviceInfo.On("GetDeviceID").Return("existing-device-id")

	mockMiddleware.On("Subscribe", "test/registration/response/existing-device-id", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			callback := args.Get(2).(MQTT.MessageHandler)
			response := mocks.NewMockMessage("test/registration/response/existing-device-id",
				[]byte(`{"device_id":"existing-device-id"}`))
			callback(nil, response)
		}).
		Return(nil)
	mockMiddleware.On("Unsubscribe", mock.Anything).Return(nil)
	mockMiddleware.On("Publish", "test/registration", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rs := newTestRegistrationService(mockDeviceInfo, mockMiddleware)

	err := rs.Register(models.RegistrationPayload{DeviceID: "existing-device-id"})
	assert.NoError(t, err)

	mockDeviceInfo.AssertNotCalled(t, "SaveDeviceID", mock.Anything)
	mockMiddleware.AssertExpectations(t)
}

// TestRegistrationService_Register_Timeout tests that a silent backend leads
// to a timeout after the configured retries.
func TestRegistrationService_Register_Timeout(t *testing.T) {
	mockDeviceInfo := new(mocks.DeviceInfoInterface)
	mockMiddleware := new(mocks.MQTTAuthMiddleware)

	mockDeviceInfo.On("GetDeviceID").Return("")

	mockMiddleware.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockMiddleware.On("Unsubscribe", mock.Anything).Return(nil)
	mockMiddleware.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rs := newTestRegistrationService(mockDeviceInfo, mockMiddleware)

	err := rs.Register(models.RegistrationPayload{ClientID: "test-client"})
	assert.Error(t, err)
	assert.Equal(t, "registration timeout after maximum retries", err.Error())
}
