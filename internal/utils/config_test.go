package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobridge/geo-agent/internal/utils"
	"github.com/geobridge/geo-agent/pkg/file"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeTestConfig(t, `
mqtt:
  broker: "tls://broker.example.com:8883"
  client_id: "geo-agent"
  ca_certificate: "certs/ca.pem"
identity:
  device_file: "configs/device.json"
services:
  geolocation:
    enabled: true
    topic: "agents/geolocation"
    source: "gps"
    gps_device_port: "/dev/ttyUSB0"
    gps_baud_rate: 9600
`)

	config, err := utils.LoadConfig(path, file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, "tls://broker.example.com:8883", config.MQTT.Broker)
	assert.Equal(t, "gps", config.Services.Geolocation.Source)
	assert.Equal(t, 9600, config.Services.Geolocation.GPSDeviceBaudRate)
	assert.True(t, config.Services.Geolocation.Enabled)
}

func TestLoadConfig_MissingBroker(t *testing.T) {
	path := writeTestConfig(t, `
mqtt:
  client_id: "geo-agent"
  ca_certificate: "certs/ca.pem"
identity:
  device_file: "configs/device.json"
`)

	_, err := utils.LoadConfig(path, file.NewFileService())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadConfig_RejectsUnknownSource(t *testing.T) {
	path := writeTestConfig(t, `
mqtt:
  broker: "tls://broker.example.com:8883"
  client_id: "geo-agent"
  ca_certificate: "certs/ca.pem"
identity:
  device_file: "configs/device.json"
services:
  geolocation:
    enabled: true
    source: "bluetooth"
`)

	_, err := utils.LoadConfig(path, file.NewFileService())
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := utils.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), file.NewFileService())
	assert.Error(t, err)
}
