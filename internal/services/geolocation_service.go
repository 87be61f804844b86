package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/geobridge/geo-agent/internal/constants"
	mqtt_middleware "github.com/geobridge/geo-agent/internal/middlewares/mqtt"
	"github.com/geobridge/geo-agent/internal/models"
	"github.com/geobridge/geo-agent/internal/utils"
	"github.com/geobridge/geo-agent/pkg/geolocation"
	"github.com/geobridge/geo-agent/pkg/identity"
	"github.com/geobridge/geo-agent/pkg/jwt"
)

// GeolocationService exposes the device's location source to bridge clients
// over MQTT. It answers single-fix requests, maintains per-client watch
// streams and normalizes every provider failure into a portable error code.
//
// Requests arrive on {topic}/{deviceID}; responses and watch updates are
// published to {topic}/{deviceID}/response/{clientID}.
type GeolocationService struct {
	// Configuration fields
	topic          string
	qos            int
	requestTimeout time.Duration
	authEnabled    bool

	// Dependencies
	deviceInfo     identity.DeviceInfoInterface
	mqttMiddleware mqtt_middleware.MQTTMiddleware
	jwtManager     jwt.JWTManagerInterface
	provider       geolocation.Provider
	logger         zerolog.Logger

	// Internal state management
	watches  cmap.ConcurrentMap[string, *positionWatch]
	pool     *utils.WorkerPool
	stopChan chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex

	lastFixMu sync.Mutex
	lastFix   *geolocation.Position
}

// positionWatch tracks one client's watch registration. Its entry in the
// watch table is removed exactly once, when the watch is cleared, replaced
// or its stream ends.
type positionWatch struct {
	clientID string
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewGeolocationService initializes a new GeolocationService instance.
func NewGeolocationService(topic string, qos int, requestTimeout time.Duration, authEnabled bool,
	deviceInfo identity.DeviceInfoInterface, mqttMiddleware mqtt_middleware.MQTTMiddleware,
	jwtManager jwt.JWTManagerInterface, provider geolocation.Provider, logger zerolog.Logger) *GeolocationService {

	if requestTimeout <= 0 {
		requestTimeout = constants.DefaultRequestTimeout * time.Second
	}

	return &GeolocationService{
		topic:          topic,
		qos:            qos,
		requestTimeout: requestTimeout,
		authEnabled:    authEnabled,
		deviceInfo:     deviceInfo,
		mqttMiddleware: mqttMiddleware,
		jwtManager:     jwtManager,
		provider:       provider,
		logger:         logger,
		watches:        cmap.New[*positionWatch](),
	}
}

// Start subscribes to the bridge request topic and begins dispatching calls.
func (gs *GeolocationService) Start() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ctx != nil {
		gs.logger.Warn().Msg("GeolocationService is already running")
		return errors.New("geolocation service is already running")
	}

	gs.ctx, gs.cancel = context.WithCancel(context.Background())
	gs.stopChan = make(chan struct{})
	gs.pool = utils.NewWorkerPool(constants.DefaultDispatchWorkers)

	topic := gs.requestTopic()
	if err := gs.mqttMiddleware.Subscribe(topic, byte(gs.qos), gs.HandleRequest); err != nil {
		gs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to request topic")
		gs.cancel()
		gs.ctx = nil
		gs.cancel = nil
		gs.pool.Shutdown()
		gs.pool = nil
		return err
	}

	gs.logger.Info().Str("topic", topic).Msg("GeolocationService started successfully")
	return nil
}

// Stop clears all watches, stops the dispatcher and unsubscribes.
func (gs *GeolocationService) Stop() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ctx == nil {
		gs.logger.Warn().Msg("GeolocationService is not running")
		return errors.New("geolocation service is not running")
	}

	close(gs.stopChan)
	gs.cancel()
	gs.wg.Wait()
	gs.pool.Shutdown()

	gs.watches.Clear()

	topic := gs.requestTopic()
	if err := gs.mqttMiddleware.Unsubscribe(topic); err != nil {
		gs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from request topic")
		return err
	}

	if err := gs.provider.Close(); err != nil {
		gs.logger.Error().Err(err).Msg("Failed to close location provider")
		return err
	}

	gs.ctx = nil
	gs.cancel = nil
	gs.pool = nil

	gs.logger.Info().Msg("GeolocationService stopped successfully")
	return nil
}

// HandleRequest parses an incoming bridge call and dispatches it on the
// worker pool so the MQTT callback never blocks.
func (gs *GeolocationService) HandleRequest(client MQTT.Client, msg MQTT.Message) {
	gs.mu.Lock()
	select {
	case <-gs.stopChan:
		gs.mu.Unlock()
		gs.logger.Warn().Msg("Received bridge call but service is stopping, ignoring")
		return
	default:
		gs.wg.Add(1)
		gs.mu.Unlock()
	}

	var req models.PositionRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		gs.wg.Done()
		gs.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Failed to parse bridge call")
		return
	}

	if req.ClientID == "" {
		gs.wg.Done()
		gs.logger.Warn().Str("action", req.Action).Msg("Bridge call without client_id, ignoring")
		return
	}

	gs.logger.Debug().
		Str("action", req.Action).
		Str("client_id", req.ClientID).
		Msg("Received bridge call")

	gs.pool.Submit(func() {
		defer gs.wg.Done()
		gs.dispatch(req)
	})
}

// dispatch routes a bridge call to its operation.
func (gs *GeolocationService) dispatch(req models.PositionRequest) {
	switch req.Action {
	case constants.ActionGetLocation:
		gs.getLocation(req)
	case constants.ActionAddWatch:
		gs.addWatch(req)
	case constants.ActionClearWatch:
		gs.clearWatch(req.ClientID)
	default:
		gs.logger.Warn().Str("action", req.Action).Str("client_id", req.ClientID).Msg("Unknown bridge action")
	}
}

// requestAccess verifies the agent may serve location data. Denials always
// surface as PERMISSION_DENIED to the caller.
func (gs *GeolocationService) requestAccess() *geolocation.PositionError {
	if gs.authEnabled {
		isValid, err := gs.jwtManager.IsJWTValid()
		if err != nil || !isValid {
			return geolocation.NewPositionError(geolocation.PermissionDenied,
				"location access denied: agent is not authorized", err)
		}
	}
	if gs.provider == nil {
		return geolocation.NewPositionError(geolocation.PositionUnavailable,
			"no location provider configured", nil)
	}
	return nil
}

// getLocation resolves a single-fix request, answering from the last fix
// when it satisfies the caller's maximum age.
func (gs *GeolocationService) getLocation(req models.PositionRequest) {
	if perr := gs.requestAccess(); perr != nil {
		gs.publishFailure(req.ClientID, perr)
		return
	}

	if pos := gs.freshFix(req.MaximumAgeMs); pos != nil {
		gs.logger.Debug().Str("client_id", req.ClientID).Msg("Answering getLocation from last fix")
		gs.publishResult(req.ClientID, *pos)
		return
	}

	ctx, cancel := context.WithTimeout(gs.ctx, gs.requestTimeout)
	defer cancel()

	pos, err := gs.provider.GetPosition(ctx, geolocation.Options{HighAccuracy: req.HighAccuracy})
	if err != nil {
		gs.logger.Error().Err(err).Str("client_id", req.ClientID).Msg("Failed to acquire position")
		gs.publishFailure(req.ClientID, geolocation.Classify(err))
		return
	}

	gs.storeFix(pos)
	gs.publishResult(req.ClientID, pos)
}

// addWatch registers a continuous position stream for a client. Re-adding
// an existing client replaces its previous watch.
func (gs *GeolocationService) addWatch(req models.PositionRequest) {
	if perr := gs.requestAccess(); perr != nil {
		gs.publishFailure(req.ClientID, perr)
		return
	}

	// Replace semantics: the previous watch for this client is torn down
	// before the new stream starts.
	if prev, ok := gs.watches.Pop(req.ClientID); ok {
		prev.cancel()
		<-prev.done
	}

	watchCtx, watchCancel := context.WithCancel(gs.ctx)
	updates, err := gs.provider.Watch(watchCtx, geolocation.Options{HighAccuracy: req.HighAccuracy})
	if err != nil {
		watchCancel()
		gs.logger.Error().Err(err).Str("client_id", req.ClientID).Msg("Failed to start position watch")
		gs.publishFailure(req.ClientID, geolocation.Classify(err))
		return
	}

	w := &positionWatch{
		clientID: req.ClientID,
		cancel:   watchCancel,
		done:     make(chan struct{}),
	}
	gs.watches.Set(req.ClientID, w)

	gs.wg.Add(1)
	go gs.forwardUpdates(w, updates)

	gs.logger.Info().Str("client_id", req.ClientID).Msg("Position watch registered")
}

// clearWatch deregisters a client's watch. Unknown identifiers are a no-op.
func (gs *GeolocationService) clearWatch(clientID string) {
	w, ok := gs.watches.Pop(clientID)
	if !ok {
		gs.logger.Debug().Str("client_id", clientID).Msg("clearWatch for unknown client, ignoring")
		return
	}

	w.cancel()
	<-w.done
	gs.logger.Info().Str("client_id", clientID).Msg("Position watch cleared")
}

// forwardUpdates pumps a provider stream to the client's response topic
// until the stream ends.
func (gs *GeolocationService) forwardUpdates(w *positionWatch, updates <-chan geolocation.Update) {
	defer gs.wg.Done()
	defer close(w.done)

	for update := range updates {
		if update.Err != nil {
			gs.logger.Warn().Err(update.Err).Str("client_id", w.clientID).Msg("Watch update failed")
			gs.publishFailure(w.clientID, geolocation.Classify(update.Err))
			continue
		}
		gs.storeFix(update.Position)
		gs.publishResult(w.clientID, update.Position)
	}

	// The stream ended on its own (source failure or shutdown). Drop the
	// table entry unless a replacement watch already took the slot.
	gs.watches.RemoveCb(w.clientID, func(key string, v *positionWatch, exists bool) bool {
		return exists && v == w
	})
}

// freshFix returns the last fix when it is at most maxAgeMs old.
func (gs *GeolocationService) freshFix(maxAgeMs int64) *geolocation.Position {
	if maxAgeMs <= 0 {
		return nil
	}

	gs.lastFixMu.Lock()
	defer gs.lastFixMu.Unlock()

	if gs.lastFix == nil {
		return nil
	}
	if time.Since(gs.lastFix.Timestamp) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil
	}

	fix := *gs.lastFix
	return &fix
}

func (gs *GeolocationService) storeFix(pos geolocation.Position) {
	gs.lastFixMu.Lock()
	gs.lastFix = &pos
	gs.lastFixMu.Unlock()
}

// publishResult sends a normalized position to the client's response topic.
func (gs *GeolocationService) publishResult(clientID string, pos geolocation.Position) {
	result := models.PositionResult{
		DeviceID:         gs.deviceInfo.GetDeviceID(),
		ClientID:         clientID,
		Latitude:         pos.Latitude,
		Longitude:        pos.Longitude,
		Accuracy:         pos.Accuracy,
		Altitude:         pos.Altitude,
		AltitudeAccuracy: pos.AltitudeAccuracy,
		Heading:          pos.Heading,
		Speed:            pos.Speed,
		Timestamp:        pos.Timestamp,
	}

	payload, err := json.Marshal(result)
	if err != nil {
		gs.logger.Error().Err(err).Msg("Failed to serialize position result")
		return
	}

	topic := gs.responseTopic(clientID)
	if err := gs.mqttMiddleware.Publish(topic, byte(gs.qos), false, payload); err != nil {
		gs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish position result")
		return
	}

	gs.logger.Debug().
		Str("client_id", clientID).
		Float64("latitude", pos.Latitude).
		Float64("longitude", pos.Longitude).
		Msg("Position published successfully")
}

// publishFailure sends a portable error to the client's response topic.
func (gs *GeolocationService) publishFailure(clientID string, perr *geolocation.PositionError) {
	failure := models.PositionFailure{
		DeviceID: gs.deviceInfo.GetDeviceID(),
		ClientID: clientID,
		Code:     string(perr.Code),
		Message:  perr.Message,
	}

	payload, err := json.Marshal(failure)
	if err != nil {
		gs.logger.Error().Err(err).Msg("Failed to serialize position failure")
		return
	}

	topic := gs.responseTopic(clientID)
	if err := gs.mqttMiddleware.Publish(topic, byte(gs.qos), false, payload); err != nil {
		gs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish position failure")
	}
}

func (gs *GeolocationService) requestTopic() string {
	return gs.topic + "/" + gs.deviceInfo.GetDeviceID()
}

func (gs *GeolocationService) responseTopic(clientID string) string {
	return fmt.Sprintf("%s/%s/response/%s", gs.topic, gs.deviceInfo.GetDeviceID(), clientID)
}
