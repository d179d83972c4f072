package display

import (
	"context"
	"math"

	"github.com/rs/zerolog"
)

// LogSink writes each snapshot to the application log, one line per aircraft
// followed by the total.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs through logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("sink", "log").Logger()}
}

// Deliver logs the snapshot.
func (l *LogSink) Deliver(ctx context.Context, snap Snapshot) error {
	for _, s := range snap.States {
		ev := l.logger.Info().
			Str("callsign", s.Label()).
			Str("icao24", s.ICAO24).
			Str("country", s.OriginCountry).
			Stringer("source", s.PositionSource)
		if s.BaroAltitude != nil {
			ev = ev.Float64("altitude_m", *s.BaroAltitude)
		}
		if look, ok := s.LookFrom(snap.Center); ok {
			ev = ev.
				Float64("distance_km", math.Round(look.DistanceKm*10)/10).
				Float64("azimuth", math.Round(look.Azimuth)).
				Float64("elevation", math.Round(look.Elevation))
		}
		ev.Msg("Aircraft overhead")
	}

	l.logger.Info().
		Str("cycle", snap.CycleID).
		Int("count", snap.Count).
		Stringer("area", snap.Area).
		Msg("Aircraft in area")
	return nil
}

// Close is a no-op.
func (l *LogSink) Close() error {
	return nil
}
