package opensky

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrAPIRequestFailed matches any *APIError (non-2xx response).
	ErrAPIRequestFailed = errors.New("opensky: api request failed")

	// ErrTimeout is returned when the request did not complete within the
	// client timeout or the caller's deadline.
	ErrTimeout = errors.New("opensky: request timed out")

	// ErrMalformedRecord is returned when a state vector does not have the
	// expected 17 fields of the expected JSON types.
	ErrMalformedRecord = errors.New("opensky: malformed state vector")

	// ErrUnknownPositionSource is returned for position source codes outside 0..3.
	ErrUnknownPositionSource = errors.New("opensky: unknown position source")
)

// APIError is returned when the API responds with a non-success status.
type APIError struct {
	StatusCode int
	Reason     string

	// RetryAfter is parsed from the Retry-After header (0 when absent)
	RetryAfter time.Duration

	// Remaining is X-Rate-Limit-Remaining, or -1 when absent
	Remaining int
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("opensky: response not OK: status %d - %s", e.StatusCode, e.Reason)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %v)", e.RetryAfter)
	}
	return msg
}

// Is lets errors.Is(err, ErrAPIRequestFailed) match.
func (e *APIError) Is(target error) bool {
	return target == ErrAPIRequestFailed
}

// IsAPIError checks if an error is an API error.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// RecordError identifies which state vector failed to decode.
type RecordError struct {
	Index int
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("state vector %d: field %s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("state vector %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// newAPIError builds an APIError from a response, including the rate limit
// headers OpenSky sends with 429 responses.
func newAPIError(resp *http.Response) *APIError {
	reason := http.StatusText(resp.StatusCode)
	if reason == "" {
		reason = resp.Status
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Reason:     reason,
		RetryAfter: parseRetryAfter(resp.Header),
		Remaining:  -1,
	}

	if remaining := resp.Header.Get("X-Rate-Limit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			apiErr.Remaining = val
		}
	}

	// OpenSky reports the wait in its own header rather than Retry-After.
	if apiErr.RetryAfter == 0 {
		if secs := resp.Header.Get("X-Rate-Limit-Retry-After-Seconds"); secs != "" {
			if val, err := strconv.Atoi(secs); err == nil && val > 0 {
				apiErr.RetryAfter = time.Duration(val) * time.Second
			}
		}
	}

	return apiErr
}

// parseRetryAfter extracts the Retry-After header value.
// Supports both delay-seconds (integer) and HTTP-date formats.
//
// Examples:
//
//	Retry-After: 30                            -> 30 seconds
//	Retry-After: Wed, 21 Oct 2015 07:28:00 GMT -> duration until that time
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(retryTime); d > 0 {
			return d
		}
	}

	return 0
}
