package geolocation

import (
	"context"
	"time"

	"googlemaps.github.io/maps"
)

// DefaultPollInterval is used by network-based watches when the
// configuration does not specify one.
const DefaultPollInterval = 10 * time.Second

// requestTimeout bounds a single geolocation API round trip.
const requestTimeout = 10 * time.Second

// GoogleProvider resolves the device position through the Google Maps
// Geolocation API using nearby WiFi access points and cell towers. The API
// has no push stream, so Watch polls at a fixed interval.
type GoogleProvider struct {
	client       *maps.Client
	modemIndex   int
	pollInterval time.Duration
}

// NewGoogleProvider creates a GoogleProvider with the given API key. A
// non-positive pollInterval falls back to DefaultPollInterval.
func NewGoogleProvider(apiKey string, modemIndex int, pollInterval time.Duration) (*GoogleProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &GoogleProvider{
		client:       c,
		modemIndex:   modemIndex,
		pollInterval: pollInterval,
	}, nil
}

// GetPosition performs a single geolocation lookup. WiFi and cell scans are
// best effort; the API falls back to IP-based positioning without them.
func (g *GoogleProvider) GetPosition(ctx context.Context, opts Options) (Position, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := &maps.GeolocationRequest{
		ConsiderIP: true,
	}

	if wifiAPs, err := getWiFiAccessPoints(ctx); err == nil {
		req.WiFiAccessPoints = wifiAPs
	}
	if cellTowers, err := getCellTowers(ctx, g.modemIndex); err == nil {
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Position{}, err
	}

	return Position{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
		Timestamp: time.Now(),
	}, nil
}

// Watch polls the geolocation API until the context is cancelled. Lookup
// failures are forwarded on the stream without stopping it; the service
// layer decides what to do with them.
func (g *GoogleProvider) Watch(ctx context.Context, opts Options) (<-chan Update, error) {
	updates := make(chan Update, 1)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(g.pollInterval)
		defer ticker.Stop()

		for {
			pos, err := g.GetPosition(ctx, opts)

			var update Update
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				update = Update{Err: err}
			} else {
				update = Update{Position: pos}
			}

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}

// Close implements Provider.
func (g *GoogleProvider) Close() error {
	return nil
}
