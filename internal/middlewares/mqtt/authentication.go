package mqtt_middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/geobridge/geo-agent/internal/models"
	"github.com/geobridge/geo-agent/pkg/file"
	"github.com/geobridge/geo-agent/pkg/identity"
	"github.com/geobridge/geo-agent/pkg/jwt"
)

// maxAuthAttempts bounds certificate and refresh-token request retries.
const maxAuthAttempts = 5

// MQTTAuthenticationMiddleware attaches a valid JWT to every outgoing
// message, obtaining and refreshing tokens from the backend as needed. When
// the backend refuses to issue a token the agent has no location access;
// callers surface that as a permission denial.
type MQTTAuthenticationMiddleware struct {
	// Configuration
	authTopic                 string
	qos                       int
	authenticationCertificate []byte
	clientID                  string

	// Dependencies
	deviceInfo identity.DeviceInfoInterface
	jwtManager jwt.JWTManagerInterface
	fileClient file.FileOperations
	logger     zerolog.Logger
	next       MQTTMiddleware

	// Retry settings
	retryDelay         time.Duration
	requestWaitingTime time.Duration

	// Synchronization
	jwtMutex      sync.Mutex // Protects JWT refresh
	refreshingJWT bool       // Tracks if a refresh is in progress
}

// NewMQTTAuthenticationMiddleware initializes and returns a new instance.
func NewMQTTAuthenticationMiddleware(
	authTopic string,
	qos int,
	clientID string,
	deviceInfo identity.DeviceInfoInterface,
	jwtManager jwt.JWTManagerInterface,
	fileClient file.FileOperations,
	logger zerolog.Logger,
	retryDelay int,
	requestWaitingTime int,
) *MQTTAuthenticationMiddleware {
	return &MQTTAuthenticationMiddleware{
		authTopic:          authTopic,
		qos:                qos,
		clientID:           clientID,
		retryDelay:         time.Duration(retryDelay) * time.Second,
		requestWaitingTime: time.Duration(requestWaitingTime) * time.Second,
		deviceInfo:         deviceInfo,
		jwtManager:         jwtManager,
		fileClient:         fileClient,
		logger:             logger,
	}
}

// SetNext sets the next middleware in the chain.
func (m *MQTTAuthenticationMiddleware) SetNext(next MQTTMiddleware) {
	m.next = next
}

// Init sets up the middleware by loading tokens and ensuring a valid JWT.
func (m *MQTTAuthenticationMiddleware) Init(authenticationCertificatePath string) error {
	if err := m.jwtManager.LoadJWT(); err != nil {
		m.logger.Error().Err(err).Msg("Failed to load existing JWT tokens")
	}

	certificate, err := m.fileClient.ReadFileRaw(authenticationCertificatePath)
	if err != nil {
		return fmt.Errorf("failed to load authentication certificate: %w", err)
	}
	m.authenticationCertificate = certificate

	isValid, err := m.jwtManager.IsJWTValid()
	if err != nil {
		return fmt.Errorf("failed to validate JWT: %w", err)
	}

	if !isValid {
		m.logger.Info().Msg("No valid JWT found, requesting initial authentication")
		if err := m.requestJWTWithCertificate(); err != nil {
			return fmt.Errorf("initial JWT request failed: %w", err)
		}
	}
	return nil
}

// onAuthMessage handles authentication responses from the backend.
func (m *MQTTAuthenticationMiddleware) onAuthMessage(msg mqttLib.Message) error {
	m.logger.Info().Str("topic", msg.Topic()).Msg("Received authentication response")

	var authResponse models.AuthResponse
	if err := json.Unmarshal(msg.Payload(), &authResponse); err != nil {
		m.logger.Error().Err(err).Msg("Failed to parse authentication response")
		return err
	}

	if err := m.jwtManager.SaveJWT(authResponse.AccessToken); err != nil {
		m.logger.Error().Err(err).Msg("Failed to save JWT token")
		return err
	}
	if authResponse.RefreshToken != "" {
		if err := m.jwtManager.SaveRefreshToken(authResponse.RefreshToken); err != nil {
			m.logger.Error().Err(err).Msg("Failed to save refresh token")
			return err
		}
	}

	m.logger.Info().Msg("JWT and refresh tokens successfully stored")
	return nil
}

// requestToken publishes an authentication request and waits for the
// backend's response on the per-identifier response topic.
func (m *MQTTAuthenticationMiddleware) requestToken(payload models.AuthRequest, identifier string) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal authentication request: %w", err)
	}

	jwtChan := make(chan error, 1)
	handler := func(client mqttLib.Client, msg mqttLib.Message) {
		jwtChan <- m.onAuthMessage(msg)
	}

	authResponseTopic := fmt.Sprintf("%s/response/%s", m.authTopic, identifier)
	if err := m.next.Subscribe(authResponseTopic, byte(m.qos), handler); err != nil {
		return fmt.Errorf("failed to subscribe for auth response: %w", err)
	}
	defer func() {
		if err := m.next.Unsubscribe(authResponseTopic); err != nil {
			m.logger.Warn().Err(err).Msgf("failed to unsubscribe from %s", authResponseTopic)
		}
	}()

	if err := m.next.Publish(m.authTopic, byte(m.qos), false, payloadBytes); err != nil {
		return fmt.Errorf("failed to publish authentication request: %w", err)
	}

	select {
	case <-time.After(m.requestWaitingTime):
		return errors.New("authentication response timeout")
	case err := <-jwtChan:
		if err != nil {
			return fmt.Errorf("authentication response error: %w", err)
		}
		return nil
	}
}

// requestJWTWithCertificate requests a JWT using the authentication certificate.
func (m *MQTTAuthenticationMiddleware) requestJWTWithCertificate() error {
	for attempt := 1; attempt <= maxAuthAttempts; attempt++ {
		m.logger.Info().Int("attempt", attempt).Msg("Requesting JWT with certificate")

		payload := models.AuthRequest{Key: m.authenticationCertificate}
		identifier := m.deviceInfo.GetDeviceID()
		if identifier != "" {
			payload.DeviceID = identifier
		} else {
			payload.ClientID = m.clientID
			identifier = m.clientID
		}

		err := m.requestToken(payload, identifier)
		if err == nil {
			m.logger.Info().Int("attempt", attempt).Msg("Successfully obtained JWT with certificate")
			return nil
		}

		jitter := time.Duration(rand.Int63n(int64(m.retryDelay)/10 + 1))
		m.logger.Warn().
			Int("attempt", attempt).
			Err(err).
			Msg("Failed to obtain JWT, retrying after delay")
		time.Sleep(m.retryDelay + jitter)
	}

	return fmt.Errorf("failed to obtain JWT after %d attempts", maxAuthAttempts)
}

// refreshJWT requests a new JWT using the refresh token, falling back to
// the certificate when no refresh token is available.
func (m *MQTTAuthenticationMiddleware) refreshJWT() error {
	// Block two threads from refreshing JWT at the same time
	m.jwtMutex.Lock()
	if m.refreshingJWT {
		m.jwtMutex.Unlock()
		return errors.New("JWT refresh already in progress, try again later")
	}
	m.refreshingJWT = true
	m.jwtMutex.Unlock()

	defer func() {
		m.jwtMutex.Lock()
		m.refreshingJWT = false
		m.jwtMutex.Unlock()
	}()

	refreshToken, err := m.jwtManager.GetRefreshToken()
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to load refresh token")
	}

	if refreshToken != "" {
		payload := models.AuthRequest{
			DeviceID:     m.deviceInfo.GetDeviceID(),
			RefreshToken: refreshToken,
		}
		if err := m.requestToken(payload, m.deviceInfo.GetDeviceID()); err == nil {
			m.logger.Info().Msg("JWT successfully refreshed with refresh token")
			return nil
		}
		m.logger.Warn().Msg("Refresh token rejected, falling back to certificate")
	}

	return m.requestJWTWithCertificate()
}

// validateJWT ensures a valid JWT is available before performing actions.
func (m *MQTTAuthenticationMiddleware) validateJWT() (string, error) {
	isValid, err := m.jwtManager.IsJWTValid()
	if err != nil {
		return "", fmt.Errorf("failed to validate JWT: %w", err)
	}

	if !isValid {
		m.logger.Info().Msg("JWT is expired, attempting refresh")
		if err := m.refreshJWT(); err != nil {
			return "", fmt.Errorf("failed to refresh JWT: %w", err)
		}
	}

	return m.jwtManager.GetJWT(), nil
}

// Publish wraps any payload with a JWT and sends it down the chain.
func (m *MQTTAuthenticationMiddleware) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	jwtToken, err := m.validateJWT()
	if err != nil {
		return fmt.Errorf("failed JWT validation: %w", err)
	}

	// Pre-marshaled payloads embed as raw JSON rather than base64.
	if b, ok := payload.([]byte); ok {
		payload = json.RawMessage(b)
	}

	wrappedPayload := models.WrappedPayload{
		JWT:     jwtToken,
		Payload: payload,
	}
	payloadBytes, err := json.Marshal(wrappedPayload)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to serialize wrapped payload")
		return fmt.Errorf("failed to serialize wrapped payload: %w", err)
	}

	m.logger.Debug().Str("topic", topic).Msg("Publishing message with JWT")
	return m.next.Publish(topic, qos, retained, payloadBytes)
}

// Subscribe subscribes to a topic with the provided callback function.
func (m *MQTTAuthenticationMiddleware) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	return m.next.Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes from the given topics.
func (m *MQTTAuthenticationMiddleware) Unsubscribe(topics ...string) error {
	return m.next.Unsubscribe(topics...)
}
