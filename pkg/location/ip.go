package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/unklstewy/overhead/pkg/geo"
)

// DefaultIPLookupURL is the free ip-api.com endpoint.
// Free tier: 45 requests per minute.
const DefaultIPLookupURL = "http://ip-api.com/json/"

// ipLookupRate keeps well under the free tier limit.
const ipLookupRate = rate.Limit(30.0 / 60.0)

// IPProvider locates the caller from the public IP address of this host.
// The lookup service must answer with ip-api.com style JSON.
type IPProvider struct {
	// url is the lookup endpoint
	url string

	// httpClient is the HTTP client used for lookups
	httpClient *http.Client

	// limiter throttles outbound lookups
	limiter *rate.Limiter

	logger zerolog.Logger
}

// ipAPIResponse is the subset of the ip-api.com response we use.
type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Query   string  `json:"query"`
}

// NewIPProvider creates an IP geolocation provider.
// An empty url selects DefaultIPLookupURL.
func NewIPProvider(url string, logger zerolog.Logger) *IPProvider {
	if url == "" {
		url = DefaultIPLookupURL
	}
	return &IPProvider{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(ipLookupRate, 1),
		logger:  logger,
	}
}

// Locate queries the lookup service and returns the reported position.
func (p *IPProvider) Locate(ctx context.Context) (geo.Position, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return geo.Position{}, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return geo.Position{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return geo.Position{}, fmt.Errorf("failed to look up IP location: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return geo.Position{}, fmt.Errorf("IP lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return geo.Position{}, fmt.Errorf("failed to parse IP lookup response: %w", err)
	}
	if result.Status != "success" {
		return geo.Position{}, fmt.Errorf("%w: IP lookup failed: %s", ErrNoFix, result.Message)
	}

	pos := geo.Position{Latitude: result.Lat, Longitude: result.Lon}
	if err := pos.Validate(); err != nil {
		return geo.Position{}, fmt.Errorf("IP lookup returned %w", err)
	}

	p.logger.Debug().
		Str("ip", result.Query).
		Str("city", result.City).
		Str("country", result.Country).
		Stringer("position", pos).
		Msg("Resolved position from IP address")

	return pos, nil
}
