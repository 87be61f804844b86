package mqtt_middleware_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	mqtt_middleware "github.com/geobridge/geo-agent/internal/middlewares/mqtt"
	"github.com/geobridge/geo-agent/tests/mocks"
)

// TestChainedMQTTClient_NoMiddlewares verifies the chain degrades to a
// direct pass-through client.
func TestChainedMQTTClient_NoMiddlewares(t *testing.T) {
	mockClient := new(mocks.MQTTClient)
	mockToken := new(mocks.MockToken)

	mockToken.On("Wait").Return(true)
	mockToken.On("Error").Return(nil)
	mockClient.On("Publish", "test-topic", byte(1), false, mock.Anything).Return(mockToken)
	mockClient.On("Unsubscribe", []string{"test-topic"}).Return(mockToken)

	chain := mqtt_middleware.NewChainedMQTTClient(mockClient, nil)

	assert.NoError(t, chain.Init("unused"))
	assert.NoError(t, chain.Publish("test-topic", 1, false, []byte("payload")))
	assert.NoError(t, chain.Unsubscribe("test-topic"))

	mockClient.AssertExpectations(t)
	mockToken.AssertExpectations(t)
}

// TestChainedMQTTClient_RoutesThroughMiddleware verifies calls enter the
// chain at the first middleware.
func TestChainedMQTTClient_RoutesThroughMiddleware(t *testing.T) {
	mockClient := new(mocks.MQTTClient)
	middleware := new(mocks.MQTTAuthMiddleware)

	middleware.On("SetNext", mock.Anything).Once()
	middleware.On("Init", "certs/device.pem").Return(nil).Once()
	middleware.On("Publish", "test-topic", byte(1), false, mock.Anything).Return(nil).Once()

	chain := mqtt_middleware.NewChainedMQTTClient(mockClient, []mqtt_middleware.MQTTMiddleware{middleware})

	assert.NoError(t, chain.Init("certs/device.pem"))
	assert.NoError(t, chain.Publish("test-topic", 1, false, []byte("payload")))

	middleware.AssertExpectations(t)
	// The raw client must never be called directly
	mockClient.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
