package location

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/unklstewy/overhead/pkg/geo"
)

// GoogleProvider uses the Google Maps Geolocation API.
// Only the caller's IP address is considered; no WiFi or cell data is sent.
type GoogleProvider struct {
	client  *maps.Client
	timeout time.Duration
}

// NewGoogleProvider creates a provider for the given API key.
// Extra client options (e.g. maps.WithBaseURL) are passed through.
func NewGoogleProvider(apiKey string, opts ...maps.ClientOption) (*GoogleProvider, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &GoogleProvider{
		client:  c,
		timeout: 10 * time.Second,
	}, nil
}

// Locate asks the Geolocation API for the position of this host.
func (g *GoogleProvider) Locate(ctx context.Context) (geo.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Geolocate(ctx, &maps.GeolocationRequest{
		ConsiderIP: true,
	})
	if err != nil {
		return geo.Position{}, fmt.Errorf("google geolocation failed: %w", err)
	}

	pos := geo.Position{Latitude: resp.Location.Lat, Longitude: resp.Location.Lng}
	if err := pos.Validate(); err != nil {
		return geo.Position{}, fmt.Errorf("google geolocation returned %w", err)
	}
	return pos, nil
}
