package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/geobridge/geo-agent/internal/service_registry"
	"github.com/geobridge/geo-agent/internal/utils"
	"github.com/geobridge/geo-agent/pkg/encryption"
	"github.com/geobridge/geo-agent/pkg/file"
	"github.com/geobridge/geo-agent/pkg/identity"
	"github.com/geobridge/geo-agent/pkg/jwt"
	"github.com/geobridge/geo-agent/pkg/mqtt"
)

func main() {
	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()

	zerolog.TimeFieldFormat = time.RFC3339

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	logger.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient)
	if err := mqttClient.Initialize(config.MQTT.Broker, config.MQTT.ClientID, config.MQTT.CACertificate); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	// Initialize DeviceInfo
	deviceInfo := identity.NewDeviceInfo(config.Identity.DeviceFile, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load device information")
	}

	// Initialize token encryption and the JWT manager
	encryptionManager := encryption.NewEncryptionManager(fileClient)
	if err := encryptionManager.Initialize(config.Security.AESKeyFile); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption manager")
	}

	jwtManager := jwt.NewJWTManager(config.Security.JWTFile, fileClient, encryptionManager)
	if err := jwtManager.Initialize(config.Security.JWTSecretFile); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	// Assemble the MQTT middleware chain
	mqttMiddleware, err := service_registry.InitializeMiddlewares(config, mqttClient, deviceInfo, jwtManager, fileClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MQTT middlewares")
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, logger)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config, deviceInfo, mqttMiddleware, jwtManager); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Error while stopping services")
	}
	mqttClient.Disconnect(250)
}
