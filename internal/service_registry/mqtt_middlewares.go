package service_registry

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/geobridge/geo-agent/internal/constants"
	mqtt_middleware "github.com/geobridge/geo-agent/internal/middlewares/mqtt"
	"github.com/geobridge/geo-agent/internal/utils"
	"github.com/geobridge/geo-agent/pkg/file"
	"github.com/geobridge/geo-agent/pkg/identity"
	"github.com/geobridge/geo-agent/pkg/jwt"
	"github.com/geobridge/geo-agent/pkg/mqtt"
)

// InitializeMiddlewares assembles the MQTT middleware chain from the
// configuration. With authentication disabled the chain degrades to a
// direct pass-through client.
func InitializeMiddlewares(config *utils.Config, mqttClient mqtt.MQTTClient,
	deviceInfo identity.DeviceInfoInterface, jwtManager jwt.JWTManagerInterface,
	fileClient file.FileOperations, logger zerolog.Logger) (*mqtt_middleware.ChainedMQTTClient, error) {

	var middlewares []mqtt_middleware.MQTTMiddleware

	if config.Middlewares.Authentication.Enabled {
		authMiddleware := mqtt_middleware.NewMQTTAuthenticationMiddleware(
			config.Middlewares.Authentication.Topic,
			config.Middlewares.Authentication.QOS,
			config.MQTT.ClientID,
			deviceInfo,
			jwtManager,
			fileClient,
			logger,
			config.Middlewares.Authentication.RetryDelay,
			config.Middlewares.Authentication.RequestWaitingTime,
		)
		middlewares = append(middlewares, authMiddleware)
		logger.Info().Str("middleware", constants.AUTHENTICATION_MIDDLEWARE).Msg("Authentication middleware enabled")
	}

	chain := mqtt_middleware.NewChainedMQTTClient(mqttClient, middlewares)

	if err := chain.Init(config.Middlewares.Authentication.AuthenticationCert); err != nil {
		return nil, fmt.Errorf("failed to initialize MQTT middlewares: %w", err)
	}

	return chain, nil
}
