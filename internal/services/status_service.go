package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	mqtt_middleware "github.com/geobridge/geo-agent/internal/middlewares/mqtt"
	"github.com/geobridge/geo-agent/internal/models"
	"github.com/geobridge/geo-agent/pkg/identity"
)

// StatusService periodically publishes a host health snapshot alongside the
// active location source. Metric collection is best effort: a probe failure
// leaves the field null rather than dropping the snapshot.
type StatusService struct {
	pubTopic       string
	interval       time.Duration
	qos            int
	locationSource string

	deviceInfo     identity.DeviceInfoInterface
	mqttMiddleware mqtt_middleware.MQTTMiddleware
	logger         zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatusService initializes a new StatusService.
func NewStatusService(pubTopic string, interval time.Duration, qos int, locationSource string,
	deviceInfo identity.DeviceInfoInterface, mqttMiddleware mqtt_middleware.MQTTMiddleware,
	logger zerolog.Logger) *StatusService {

	return &StatusService{
		pubTopic:       pubTopic,
		interval:       interval,
		qos:            qos,
		locationSource: locationSource,
		deviceInfo:     deviceInfo,
		mqttMiddleware: mqttMiddleware,
		logger:         logger,
	}
}

// Start launches the status loop in a separate goroutine.
func (s *StatusService) Start() error {
	if s.ctx != nil {
		s.logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runStatusLoop()
	}()

	s.logger.Info().Str("topic", s.pubTopic).Msg("StatusService started successfully")
	return nil
}

// Stop gracefully stops the status service.
func (s *StatusService) Stop() error {
	if s.ctx == nil {
		s.logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("StatusService stopped successfully")
	return nil
}

// runStatusLoop collects and publishes snapshots at the configured interval.
func (s *StatusService) runStatusLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.PublishStatus(); err != nil {
				s.logger.Error().Err(err).Msg("Failed to publish status snapshot")
			} else {
				s.logger.Debug().Msg("Status snapshot published successfully")
			}

		case <-s.ctx.Done():
			s.logger.Info().Msg("StatusService stopping gracefully")
			return
		}
	}
}

// PublishStatus collects one snapshot and publishes it.
func (s *StatusService) PublishStatus() error {
	status := models.DeviceStatus{
		DeviceID:       s.deviceInfo.GetDeviceID(),
		Timestamp:      time.Now(),
		LocationSource: s.locationSource,
	}

	if uptime, err := host.Uptime(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read host uptime")
	} else {
		status.UptimeSeconds = uptime
	}

	if percentages, err := cpu.Percent(0, false); err != nil || len(percentages) == 0 {
		s.logger.Warn().Err(err).Msg("Failed to read CPU usage")
	} else {
		status.CPUUsagePercent = &percentages[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read memory usage")
	} else {
		status.MemoryUsedPercent = &vm.UsedPercent
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}

	return s.mqttMiddleware.Publish(s.pubTopic, byte(s.qos), false, payload)
}
