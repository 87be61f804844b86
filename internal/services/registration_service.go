package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/geobridge/geo-agent/internal/constants"
	mqtt_middleware "github.com/geobridge/geo-agent/internal/middlewares/mqtt"
	"github.com/geobridge/geo-agent/internal/models"
	"github.com/geobridge/geo-agent/pkg/identity"
)

// RegistrationService manages the process of registering the agent with the
// backend. A successful registration yields the device ID used in every
// bridge topic.
type RegistrationService struct {
	// Configuration fields
	pubTopic        string
	clientID        string
	qos             int
	maxRetries      int
	baseDelay       time.Duration
	maxDelay        time.Duration
	responseTimeout time.Duration

	// Dependencies
	deviceInfo     identity.DeviceInfoInterface
	mqttMiddleware mqtt_middleware.MQTTMiddleware
	logger         zerolog.Logger

	// Internal state for managing service lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewRegistrationService initializes and returns a new RegistrationService instance.
func NewRegistrationService(
	pubTopic string,
	clientID string,
	qos int,
	maxRetries int,
	baseDelay time.Duration,
	maxDelay time.Duration,
	responseTimeout time.Duration,
	deviceInfo identity.DeviceInfoInterface,
	mqttMiddleware mqtt_middleware.MQTTMiddleware,
	logger zerolog.Logger,
) *RegistrationService {
	if baseDelay <= 0 {
		baseDelay = constants.DefaultRegistrationBaseDelay * time.Second
	}
	if maxDelay <= 0 {
		maxDelay = constants.DefaultRegistrationMaxBackoff * time.Second
	}

	return &RegistrationService{
		pubTopic:        pubTopic,
		clientID:        clientID,
		qos:             qos,
		maxRetries:      maxRetries,
		baseDelay:       baseDelay,
		maxDelay:        maxDelay,
		responseTimeout: responseTimeout,
		deviceInfo:      deviceInfo,
		mqttMiddleware:  mqttMiddleware,
		logger:          logger,
	}
}

// Start begins the registration process if it's not already running.
func (rs *RegistrationService) Start() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ctx != nil {
		rs.logger.Warn().Msg("Registration service is already running")
		return errors.New("registration service is already running")
	}

	rs.ctx, rs.cancel = context.WithCancel(context.Background())

	rs.logger.Info().Str("client_id", rs.clientID).Msg("Starting registration process")

	return rs.Run()
}

// Run initiates the registration process, excluding ClientID if DeviceID exists.
func (rs *RegistrationService) Run() error {
	existingDeviceID := rs.deviceInfo.GetDeviceID()

	payload := models.RegistrationPayload{
		Name:         rs.deviceInfo.GetDeviceIdentity().Name,
		OrgID:        rs.deviceInfo.GetDeviceIdentity().OrgID,
		AgentVersion: constants.AgentVersion,
		Metadata:     rs.deviceInfo.GetDeviceIdentity().Metadata,
	}

	if existingDeviceID != "" {
		rs.logger.Info().Str("device_id", existingDeviceID).Msg("Device ID found, registering with existing device ID")
		payload.DeviceID = existingDeviceID
	} else {
		rs.logger.Info().Msg("No existing device ID found, registering as new device with client ID")
		payload.ClientID = rs.clientID
	}

	return rs.Register(payload)
}

// Register sends a registration request over MQTT and waits for a response,
// subscribing with DeviceID if present.
func (rs *RegistrationService) Register(payload models.RegistrationPayload) error {
	existingDeviceID := rs.deviceInfo.GetDeviceID()
	respTopic := fmt.Sprintf("%s/response/%s", rs.pubTopic, rs.clientID)
	if existingDeviceID != "" {
		respTopic = fmt.Sprintf("%s/response/%s", rs.pubTopic, existingDeviceID)
	}

	rs.logger.Info().Str("topic", respTopic).Msg("Subscribing to response topic")

	responseChannel := make(chan models.RegistrationResponse, 1)
	defer close(responseChannel)

	err := rs.mqttMiddleware.Subscribe(respTopic, byte(rs.qos), func(client MQTT.Client, msg MQTT.Message) {
		var response models.RegistrationResponse
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			rs.logger.Error().Err(err).Msg("Error parsing registration response")
			return
		}
		if response.DeviceID == "" {
			rs.logger.Error().Msg("Invalid registration response")
			return
		}
		responseChannel <- response
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to response topic: %w", err)
	}

	defer func() {
		if err := rs.mqttMiddleware.Unsubscribe(respTopic); err != nil {
			rs.logger.Warn().Err(err).Msgf("failed to unsubscribe from %s:", respTopic)
		}
	}()

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize registration payload: %w", err)
	}

	if rs.ctx == nil {
		rs.ctx = context.Background()
	}

	for attempt := 0; attempt <= rs.maxRetries; attempt++ {
		delay := rs.baseDelay * time.Duration(1<<uint(attempt))
		if delay > rs.maxDelay {
			delay = rs.maxDelay
		}
		jitter := time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		delay = time.Duration(float64(delay)*0.75) + jitter

		attemptTimeout := rs.responseTimeout + delay
		attemptCtx, cancel := context.WithTimeout(rs.ctx, attemptTimeout)
		defer cancel()

		err = rs.mqttMiddleware.Publish(rs.pubTopic, byte(rs.qos), false, payloadBytes)
		if err != nil {
			rs.logger.Error().Err(err).Int("attempt", attempt+1).Msg("Failed to publish registration message")
			if attempt == rs.maxRetries {
				return fmt.Errorf("failed to publish after %d attempts: %w", rs.maxRetries+1, err)
			}
		} else {
			select {
			case response := <-responseChannel:
				rs.logger.Info().Str("device_id", response.DeviceID).Int("attempt", attempt+1).Msg("Device registered successfully")
				rs.checkAgentVersion(response.MinAgentVersion)
				if response.DeviceID != rs.deviceInfo.GetDeviceID() {
					return rs.deviceInfo.SaveDeviceID(response.DeviceID)
				}
				return nil
			case <-attemptCtx.Done():
				rs.logger.Warn().Int("attempt", attempt+1).Msg("Registration timeout or cancelled")
				if attempt == rs.maxRetries {
					return errors.New("registration timeout after maximum retries")
				}
				if errors.Is(attemptCtx.Err(), context.Canceled) {
					return errors.New("registration service stopped")
				}
			}
		}

		select {
		case <-time.After(delay):
			continue
		case <-rs.ctx.Done():
			rs.logger.Warn().Msg("Registration Service stopping during retry delay")
			return errors.New("registration service stopped")
		}
	}

	return errors.New("unexpected error: retry loop completed without resolution")
}

// checkAgentVersion warns when the backend reports a newer minimum supported
// agent version than the one currently running.
func (rs *RegistrationService) checkAgentVersion(minVersion string) {
	if minVersion == "" {
		return
	}

	minimum, err := semver.NewVersion(minVersion)
	if err != nil {
		rs.logger.Warn().Err(err).Str("min_agent_version", minVersion).Msg("Backend sent unparseable minimum agent version")
		return
	}

	current, err := semver.NewVersion(constants.AgentVersion)
	if err != nil {
		rs.logger.Warn().Err(err).Msg("Agent build carries an unparseable version")
		return
	}

	if current.LessThan(minimum) {
		rs.logger.Warn().
			Str("agent_version", constants.AgentVersion).
			Str("min_agent_version", minVersion).
			Msg("Agent version is below the backend's minimum supported version, upgrade recommended")
	}
}

// Stop gracefully shuts down the registration service and unsubscribes from MQTT topics.
func (rs *RegistrationService) Stop() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ctx == nil {
		return errors.New("registration service is not running")
	}

	rs.cancel()

	// Unsubscribe from the response topic, using DeviceID if present, otherwise ClientID
	existingDeviceID := rs.deviceInfo.GetDeviceID()
	topic := fmt.Sprintf("%s/response/%s", rs.pubTopic, rs.clientID)
	if existingDeviceID != "" {
		topic = fmt.Sprintf("%s/response/%s", rs.pubTopic, existingDeviceID)
	}
	err := rs.mqttMiddleware.Unsubscribe(topic)
	if err != nil {
		rs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from MQTT topic")
		return err
	}

	rs.ctx = nil
	rs.cancel = nil

	rs.logger.Info().Msg("Registration service stopped successfully")
	return nil
}
