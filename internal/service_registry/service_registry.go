package service_registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geobridge/geo-agent/internal/constants"
	mqtt_middleware "github.com/geobridge/geo-agent/internal/middlewares/mqtt"
	"github.com/geobridge/geo-agent/internal/services"
	"github.com/geobridge/geo-agent/internal/utils"
	"github.com/geobridge/geo-agent/pkg/geolocation"
	"github.com/geobridge/geo-agent/pkg/identity"
	"github.com/geobridge/geo-agent/pkg/jwt"
	"github.com/geobridge/geo-agent/pkg/mqtt"
)

// Service defines the lifecycle contract every agent service implements.
type Service interface {
	Start() error
	Stop() error
}

// namedService pairs a service with its registration name for logging.
type namedService struct {
	name    string
	service Service
}

// ServiceRegistry manages agent services and their startup order.
type ServiceRegistry struct {
	services   []namedService
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger
}

// NewServiceRegistry initializes and returns a new ServiceRegistry instance.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		mqttClient: mqttClient,
		logger:     logger,
	}
}

// RegisterService adds a service to the registry, preserving registration order.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	for _, existing := range sr.services {
		if existing.name == name {
			sr.logger.Warn().Str("service", name).Msg("Service is already registered")
			return
		}
	}
	sr.services = append(sr.services, namedService{name: name, service: svc})
	sr.logger.Info().Str("service", name).Msg("Registered service")
}

// StartServices starts all registered services in registration order. On
// failure, already-started services are rolled back in reverse order.
func (sr *ServiceRegistry) StartServices() error {
	var started []namedService

	for _, entry := range sr.services {
		sr.logger.Info().Str("service", entry.name).Msg("Starting service")
		if err := entry.service.Start(); err != nil {
			sr.logger.Error().Err(err).Str("service", entry.name).Msg("Failed to start service")
			for i := len(started) - 1; i >= 0; i-- {
				if stopErr := started[i].service.Stop(); stopErr != nil {
					sr.logger.Error().Err(stopErr).Str("service", started[i].name).Msg("Failed to roll back service")
				}
			}
			return fmt.Errorf("failed to start service %s: %w", entry.name, err)
		}
		started = append(started, entry)
	}

	return nil
}

// StopServices stops all registered services in reverse registration order.
func (sr *ServiceRegistry) StopServices() error {
	var firstErr error

	for i := len(sr.services) - 1; i >= 0; i-- {
		entry := sr.services[i]
		sr.logger.Info().Str("service", entry.name).Msg("Stopping service")
		if err := entry.service.Stop(); err != nil {
			sr.logger.Error().Err(err).Str("service", entry.name).Msg("Failed to stop service")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// RegisterServices registers services based on the provided configuration.
// Registration always runs first so every later service sees a device ID.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deviceInfo identity.DeviceInfoInterface,
	mqttMiddleware mqtt_middleware.MQTTMiddleware, jwtManager jwt.JWTManagerInterface) error {

	if config.Services.Registration.Enabled {
		sr.RegisterService("registration", services.NewRegistrationService(
			config.Services.Registration.Topic,
			config.MQTT.ClientID,
			config.Services.Registration.QOS,
			config.Services.Registration.MaxRetries,
			time.Duration(config.Services.Registration.BaseDelay)*time.Second,
			time.Duration(config.Services.Registration.MaxBackoff)*time.Second,
			time.Duration(config.Services.Registration.ResponseTimeout)*time.Second,
			deviceInfo,
			mqttMiddleware,
			sr.logger,
		))
	}

	if config.Services.Geolocation.Enabled {
		provider, err := sr.buildLocationProvider(config)
		if err != nil {
			return fmt.Errorf("failed to build location provider: %w", err)
		}

		sr.RegisterService("geolocation", services.NewGeolocationService(
			config.Services.Geolocation.Topic,
			config.Services.Geolocation.QOS,
			time.Duration(config.Services.Geolocation.RequestTimeout)*time.Second,
			config.Middlewares.Authentication.Enabled,
			deviceInfo,
			mqttMiddleware,
			jwtManager,
			provider,
			sr.logger,
		))
	}

	if config.Services.Heartbeat.Enabled {
		sr.RegisterService("heartbeat", services.NewHeartbeatService(
			config.Services.Heartbeat.Topic,
			time.Duration(config.Services.Heartbeat.Interval)*time.Second,
			config.Services.Heartbeat.QOS,
			deviceInfo,
			mqttMiddleware,
			sr.logger,
		))
	}

	if config.Services.Status.Enabled {
		sr.RegisterService("status", services.NewStatusService(
			config.Services.Status.Topic,
			time.Duration(config.Services.Status.Interval)*time.Second,
			config.Services.Status.QOS,
			config.Services.Geolocation.Source,
			deviceInfo,
			mqttMiddleware,
			sr.logger,
		))
	}

	return nil
}

// buildLocationProvider selects the position source from the configuration.
func (sr *ServiceRegistry) buildLocationProvider(config *utils.Config) (geolocation.Provider, error) {
	geoCfg := config.Services.Geolocation

	switch geoCfg.Source {
	case constants.SourceGPS:
		if geoCfg.GPSDevicePort == "" {
			return nil, errors.New("gps source requires gps_device_port")
		}
		return geolocation.NewNMEAProvider(geoCfg.GPSDevicePort, geoCfg.GPSDeviceBaudRate), nil

	case constants.SourceNetwork:
		if geoCfg.MapsAPIKey == "" {
			return nil, errors.New("network source requires maps_api_key")
		}
		pollInterval := time.Duration(geoCfg.WatchPollInterval) * time.Second
		return geolocation.NewGoogleProvider(geoCfg.MapsAPIKey, geoCfg.ModemIndex, pollInterval)

	default:
		return nil, fmt.Errorf("unknown location source: %s", geoCfg.Source)
	}
}
