package utils

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/geobridge/geo-agent/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker" validate:"required"`         // MQTT broker address
		ClientID      string `yaml:"client_id" validate:"required"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate" validate:"required"` // Path to the CA certificate
	} `yaml:"mqtt"`

	Identity struct {
		DeviceFile string `yaml:"device_file" validate:"required"` // Path to the device identity file
	} `yaml:"identity"`

	Services struct {
		Registration struct {
			Topic           string `yaml:"topic"`            // MQTT topic for registration service
			Enabled         bool   `yaml:"enabled"`          // Enable/disable registration service
			QOS             int    `yaml:"qos"`              // MQTT QoS level for registration messages
			MaxRetries      int    `yaml:"max_retries"`      // Maximum number of retry attempts
			BaseDelay       int    `yaml:"base_delay"`       // Initial delay between retries (in seconds)
			MaxBackoff      int    `yaml:"max_backoff"`      // Maximum backoff time between retries (in seconds)
			ResponseTimeout int    `yaml:"response_timeout"` // Timeout for response per attempt (in seconds)
		} `yaml:"registration"`

		Heartbeat struct {
			Topic    string `yaml:"topic"`    // MQTT topic for heartbeat service
			Enabled  bool   `yaml:"enabled"`  // Enable/disable heartbeat service
			Interval int    `yaml:"interval"` // Interval between heartbeats (in seconds)
			QOS      int    `yaml:"qos"`      // MQTT QoS level for heartbeat messages
		} `yaml:"heartbeat"`

		Status struct {
			Topic    string `yaml:"topic"`    // MQTT topic for device status service
			Enabled  bool   `yaml:"enabled"`  // Enable/disable status service
			Interval int    `yaml:"interval"` // Interval between status snapshots (in seconds)
			QOS      int    `yaml:"qos"`      // MQTT QoS level for status messages
		} `yaml:"status"`

		Geolocation struct {
			Topic             string `yaml:"topic"`                                           // MQTT topic for geolocation bridge calls
			Enabled           bool   `yaml:"enabled"`                                         // Enable/disable geolocation service
			QOS               int    `yaml:"qos"`                                             // MQTT QoS level for geolocation messages
			Source            string `yaml:"source" validate:"omitempty,oneof=gps network"`   // Location source: gps or network
			GPSDevicePort     string `yaml:"gps_device_port"`                                 // Serial port of the GPS receiver
			GPSDeviceBaudRate int    `yaml:"gps_baud_rate"`                                   // Baud rate for the GPS receiver
			MapsAPIKey        string `yaml:"maps_api_key"`                                    // Google Geolocation API key
			ModemIndex        int    `yaml:"modem_index"`                                     // mmcli modem index for cell tower scans
			WatchPollInterval int    `yaml:"watch_poll_interval"`                             // Poll interval for network watches (in seconds)
			RequestTimeout    int    `yaml:"request_timeout"`                                 // Timeout for a single position acquisition (in seconds)
		} `yaml:"geolocation"`
	} `yaml:"services"`

	Security struct {
		JWTFile       string `yaml:"jwt_file"`        // Path to the JWT token file
		JWTSecretFile string `yaml:"jwt_secret_file"` // Path to the JWT secret file
		AESKeyFile    string `yaml:"aes_key_file"`    // Path to the AES key file
	} `yaml:"security"`

	Middlewares struct {
		Authentication struct {
			Enabled            bool   `yaml:"enabled"`              // Enable/disable authentication middleware
			Topic              string `yaml:"topic"`                // MQTT topic for authentication requests
			QOS                int    `yaml:"qos"`                  // MQTT QoS level for authentication messages
			RetryDelay         int    `yaml:"retry_delay"`          // Delay between retries (in seconds)
			RequestWaitingTime int    `yaml:"request_waiting_time"` // Max duration to wait for a response (in seconds)
			AuthenticationCert string `yaml:"authentication_cert"`  // Path to the authentication certificate
		} `yaml:"authentication"`
	} `yaml:"middlewares"`
}

// LoadConfig loads and validates the YAML configuration from the specified file.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
