package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/unklstewy/overhead/pkg/config"
)

// retryUnit scales the wait between WithRetry attempts; shortened in tests.
var retryUnit = time.Second

// ConnectWithRetry attempts to connect to the database with exponential backoff.
// This provides resilience when the database starts after the application.
//
// Parameters:
//   - cfg: Database configuration
//   - maxRetries: Maximum number of connection attempts (0 = until ctx is done)
//   - initialDelay: Initial wait time between retries
//
// Returns: Connected database or error if all retries exhausted
func ConnectWithRetry(ctx context.Context, cfg config.DatabaseConfig, maxRetries int, initialDelay time.Duration, logger zerolog.Logger) (*DB, error) {
	delay := initialDelay
	attempt := 0

	for {
		attempt++
		logger.Debug().Int("attempt", attempt).Str("host", cfg.Host).Msg("Connecting to database")

		db, err := Connect(ctx, cfg)
		if err == nil {
			if attempt > 1 {
				logger.Info().Int("attempts", attempt).Msg("Database connected")
			}
			return db, nil
		}

		if maxRetries > 0 && attempt >= maxRetries {
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempt, err)
		}

		logger.Warn().Err(err).Dur("retry_in", delay).Msg("Database connection failed")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		// Exponential backoff with cap at 60 seconds
		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
	}
}

// WithRetry executes a database operation with automatic retry on connection failures.
// Other errors are returned immediately.
//
// Parameters:
//   - operation: Function to execute that may fail due to connection issues
//   - maxRetries: Maximum number of retry attempts
//
// Returns: Error from operation or nil on success
func WithRetry(ctx context.Context, operation func() error, maxRetries int, logger zerolog.Logger) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isConnectionError(err) {
			return err
		}

		if attempt < maxRetries {
			waitTime := time.Duration(attempt+1) * retryUnit
			logger.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", maxRetries+1).
				Dur("retry_in", waitTime).
				Msg("Database operation failed")

			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// connErrorPatterns are substrings of driver and network errors that
// indicate a lost connection rather than a bad statement.
var connErrorPatterns = []string{
	"connection refused",
	"broken pipe",
	"no connection",
	"connection reset",
	"bad connection",
	"eof",
	"timeout",
}

// isConnectionError reports whether err means the connection was lost.
// PostgreSQL errors in class 08 (connection exception) and 57P01-57P03
// (server shutting down) qualify, as do common network failures.
func isConnectionError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08":
			return true
		case pqErr.Code == "57P01", pqErr.Code == "57P02", pqErr.Code == "57P03":
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range connErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
