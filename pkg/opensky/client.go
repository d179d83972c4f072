package opensky

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/unklstewy/overhead/pkg/geo"
)

const (
	// BaseURL is the OpenSky Network REST API base URL
	BaseURL = "https://opensky-network.org/api"

	// DefaultTimeout for API requests
	DefaultTimeout = 15 * time.Second
)

// Config contains configuration for the OpenSky client.
type Config struct {
	// BaseURL overrides the API base URL (default: BaseURL)
	BaseURL string

	// Username and Password enable authenticated access and the shorter
	// rate limit. If either is empty the client runs anonymously.
	Username string
	Password string

	// Timeout bounds each HTTP request (default: 15 seconds)
	Timeout time.Duration
}

// Client is an OpenSky Network API client.
//
// A Client is safe for concurrent use. Each Client owns its own rate limit
// state; two Clients do not share limits.
type Client struct {
	baseURL    string
	username   string
	password   string
	timeout    time.Duration
	httpClient *http.Client
	gate       *rateGate
	logger     zerolog.Logger

	// now is the clock used for rate limiting; replaced in tests
	now func() time.Time
}

// NewClient creates a new OpenSky API client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		gate:   newRateGate(),
		logger: logger.With().Str("component", "opensky").Logger(),
		now:    time.Now,
	}

	if cfg.Username != "" && cfg.Password != "" {
		c.username = cfg.Username
		c.password = cfg.Password
	}

	return c
}

// Authenticated reports whether the client sends credentials.
func (c *Client) Authenticated() bool {
	return c.username != ""
}

// StatesInterval returns the minimum interval between successful state queries.
func (c *Client) StatesInterval() time.Duration {
	if c.Authenticated() {
		return StatesIntervalAuthenticated
	}
	return StatesIntervalAnonymous
}

// LastStatesSuccess returns when the last successful state query completed,
// or the zero time if there has been none.
func (c *Client) LastStatesSuccess() time.Time {
	return c.gate.lastSuccess(opGetStates)
}

// StatesQuery selects which state vectors to retrieve.
type StatesQuery struct {
	// Area restricts results to a bounding box; nil queries the whole world
	Area *geo.Area

	// Time is a Unix timestamp; 0 retrieves the most recent states
	Time int64

	// ICAO24 optionally restricts results to the given transponder addresses
	ICAO24 []string

	// Now overrides the clock used for the rate limit check and the success
	// record; zero uses the client clock
	Now time.Time
}

// States retrieves state vectors from /states/all.
//
// If the previous successful call was less than StatesInterval ago, States
// returns a Result with Kind ResultRateLimited and a nil error without
// touching the network. Otherwise it performs exactly one request; failures
// are returned as errors and leave the rate limit state untouched.
// The success is recorded only after the body decodes, so a 200 response
// with a malformed body does not use up the rate window.
func (c *Client) States(ctx context.Context, q StatesQuery) (Result, error) {
	slot, err := c.gate.acquire(ctx, opGetStates)
	if err != nil {
		return Result{}, fmt.Errorf("rate limiter: %w", err)
	}
	defer slot.release()

	now := q.Now
	if now.IsZero() {
		now = c.now()
	}

	if !slot.allowed(now, c.StatesInterval()) {
		c.logger.Debug().
			Dur("interval", c.StatesInterval()).
			Msg("Blocking request due to rate limit")
		return Result{Kind: ResultRateLimited}, nil
	}

	params := url.Values{}
	params.Set("time", strconv.FormatInt(q.Time, 10))
	for _, icao := range q.ICAO24 {
		params.Add("icao24", strings.ToLower(strings.TrimSpace(icao)))
	}

	if q.Area != nil {
		if err := q.Area.Validate(); err != nil {
			return Result{}, fmt.Errorf("bounding box: %w", err)
		}
		minLat, maxLat, minLon, maxLon := q.Area.BBox()
		params.Set("lamin", formatCoord(minLat))
		params.Set("lamax", formatCoord(maxLat))
		params.Set("lomin", formatCoord(minLon))
		params.Set("lomax", formatCoord(maxLon))
	}

	body, err := c.getJSON(ctx, "/states/all", params)
	if err != nil {
		return Result{}, err
	}

	respTime, states, err := decodeStates(body)
	if err != nil {
		return Result{}, fmt.Errorf("decode states: %w", err)
	}

	if q.Now.IsZero() {
		now = c.now()
	}
	slot.markSuccess(now)

	if len(states) == 0 {
		c.logger.Debug().Int64("time", respTime).Msg("No aircraft in bounding box")
		return Result{Kind: ResultEmpty, Time: respTime}, nil
	}

	c.logger.Debug().
		Int64("time", respTime).
		Int("count", len(states)).
		Msg("Fetched state vectors")

	return Result{Kind: ResultData, Time: respTime, States: states}, nil
}

// getJSON performs a GET and returns the body of a successful response.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Authenticated() {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %v: %w", ErrTimeout, c.timeout, err)
		}
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		apiErr := newAPIError(resp)
		c.logger.Warn().
			Int("status", apiErr.StatusCode).
			Dur("retry_after", apiErr.RetryAfter).
			Msg("OpenSky request failed")
		return nil, apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %v: %w", ErrTimeout, c.timeout, err)
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

// isTimeout reports whether err came from a deadline rather than a hard failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
