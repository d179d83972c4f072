// Package display delivers aircraft snapshots to the places they are shown
// or recorded: the log, a terminal UI, a web page, an MQTT broker, or disk.
package display

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unklstewy/overhead/pkg/geo"
	"github.com/unklstewy/overhead/pkg/opensky"
)

// Snapshot is one poll cycle's view of the sky above the observer.
// States is in the order the API returned it and Count == len(States).
type Snapshot struct {
	// CycleID uniquely identifies the poll cycle
	CycleID string `json:"cycle_id" msgpack:"cycle_id"`

	// Taken is when the snapshot was assembled
	Taken time.Time `json:"taken" msgpack:"taken"`

	// Time is the API's own timestamp for the state vectors (Unix seconds)
	Time int64 `json:"time" msgpack:"time"`

	Center geo.Position            `json:"center" msgpack:"center"`
	Area   geo.Area                `json:"area" msgpack:"area"`
	States []opensky.AircraftState `json:"states" msgpack:"states"`
	Count  int                     `json:"count" msgpack:"count"`
}

// NewSnapshot builds a snapshot from a fetch result.
func NewSnapshot(cycleID string, taken time.Time, center geo.Position, area geo.Area, res opensky.Result) Snapshot {
	states := res.States
	if states == nil {
		states = []opensky.AircraftState{}
	}
	return Snapshot{
		CycleID: cycleID,
		Taken:   taken,
		Time:    res.Time,
		Center:  center,
		Area:    area,
		States:  states,
		Count:   len(states),
	}
}

// Sink receives snapshots. Implementations must be safe for concurrent use.
type Sink interface {
	// Deliver shows or records a snapshot.
	Deliver(ctx context.Context, snap Snapshot) error

	// Close releases the sink's resources.
	Close() error
}

// DeliverAll hands snap to every sink. A failing sink does not stop
// delivery to the others; all failures are returned joined.
func DeliverAll(ctx context.Context, sinks []Sink, snap Snapshot) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Deliver(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// CloseAll closes every sink, last first, and returns all failures joined.
// Sinks built later may read from earlier ones.
func CloseAll(sinks []Sink) error {
	var errs []error
	for i := len(sinks) - 1; i >= 0; i-- {
		s := sinks[i]
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
