// Package flow runs the poll cycle: locate the observer, build the area
// around them, fetch the aircraft inside it and hand the result to the sinks.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unklstewy/overhead/internal/display"
	"github.com/unklstewy/overhead/pkg/geo"
	"github.com/unklstewy/overhead/pkg/location"
	"github.com/unklstewy/overhead/pkg/opensky"
)

// StateSource fetches aircraft state vectors; implemented by *opensky.Client.
type StateSource interface {
	States(ctx context.Context, q opensky.StatesQuery) (opensky.Result, error)
}

// Job is one configured poll loop.
type Job struct {
	// Locator resolves the observer position each cycle
	Locator location.Provider

	// Client fetches the aircraft states
	Client StateSource

	// HalfSideKm is the distance from the observer to each edge of the area
	HalfSideKm float64

	// Sinks receive every successful snapshot
	Sinks []display.Sink

	// Interval between cycles in Run
	Interval time.Duration

	// Retry wraps the fetch in opensky.RetryWithBackoff when non-nil
	Retry *opensky.RetryConfig

	Logger zerolog.Logger

	now   func() time.Time
	newID func() string
}

// Cycle describes the outcome of one RunOnce call.
type Cycle struct {
	ID       string
	Center   geo.Position
	Area     geo.Area
	Result   opensky.Result
	Snapshot *display.Snapshot // nil when nothing was delivered
}

// RunOnce performs a single cycle. Rate-limited fetches are skipped without
// error; sink failures are logged and do not fail the cycle.
func (j *Job) RunOnce(ctx context.Context) (Cycle, error) {
	c := Cycle{ID: j.id()}
	logger := j.Logger.With().Str("cycle", c.ID).Logger()

	center, err := j.Locator.Locate(ctx)
	if err != nil {
		return c, fmt.Errorf("failed to locate observer: %w", err)
	}
	c.Center = center

	area, err := geo.SurroundingArea(center, j.HalfSideKm)
	if err != nil {
		return c, fmt.Errorf("failed to build area around %s: %w", center, err)
	}
	c.Area = area

	res, err := j.fetch(ctx, area, logger)
	if err != nil {
		return c, fmt.Errorf("failed to fetch aircraft: %w", err)
	}
	c.Result = res

	if res.RateLimited() {
		logger.Info().Msg("Skipping cycle, rate limited")
		return c, nil
	}

	snap := display.NewSnapshot(c.ID, j.clock(), center, area, res)
	c.Snapshot = &snap

	if err := display.DeliverAll(ctx, j.Sinks, snap); err != nil {
		logger.Error().Err(err).Msg("Failed to deliver snapshot")
	}

	logger.Debug().
		Stringer("kind", res.Kind).
		Int("count", snap.Count).
		Stringer("area", area).
		Msg("Cycle complete")
	return c, nil
}

func (j *Job) fetch(ctx context.Context, area geo.Area, logger zerolog.Logger) (opensky.Result, error) {
	query := func() (opensky.Result, error) {
		return j.Client.States(ctx, opensky.StatesQuery{Area: &area})
	}
	if j.Retry == nil {
		return query()
	}
	return opensky.RetryWithBackoff(ctx, *j.Retry, logger, query)
}

// Run performs a cycle immediately and then once per Interval until ctx is
// cancelled. Cycle errors are logged; Run only returns when ctx is done.
func (j *Job) Run(ctx context.Context) error {
	if j.Interval <= 0 {
		return errors.New("interval must be positive")
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	j.Logger.Info().
		Dur("interval", j.Interval).
		Float64("half_side_km", j.HalfSideKm).
		Msg("Poll loop started")

	for {
		if _, err := j.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			j.Logger.Error().Err(err).Msg("Cycle failed")
		}

		select {
		case <-ctx.Done():
			j.Logger.Info().Msg("Poll loop stopping")
			return nil
		case <-ticker.C:
		}
	}

	j.Logger.Info().Msg("Poll loop stopping")
	return nil
}

func (j *Job) clock() time.Time {
	if j.now != nil {
		return j.now()
	}
	return time.Now()
}

func (j *Job) id() string {
	if j.newID != nil {
		return j.newID()
	}
	return uuid.NewString()
}
