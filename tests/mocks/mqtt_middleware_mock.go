package mocks

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"

	mqtt_middleware "github.com/geobridge/geo-agent/internal/middlewares/mqtt"
)

// MQTTAuthMiddleware is a mock implementation of the MQTTMiddleware interface
type MQTTAuthMiddleware struct {
	mock.Mock
}

func (m *MQTTAuthMiddleware) Init(authenticationCertificatePath string) error {
	args := m.Called(authenticationCertificatePath)
	return args.Error(0)
}

func (m *MQTTAuthMiddleware) SetNext(next mqtt_middleware.MQTTMiddleware) {
	m.Called(next)
}

func (m *MQTTAuthMiddleware) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	args := m.Called(topic, qos, retained, payload)
	return args.Error(0)
}

func (m *MQTTAuthMiddleware) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) error {
	args := m.Called(topic, qos, callback)
	return args.Error(0)
}

func (m *MQTTAuthMiddleware) Unsubscribe(topics ...string) error {
	args := m.Called(topics)
	return args.Error(0)
}
