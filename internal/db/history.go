package db

import (
	"context"
	"time"
)

// History answers read-only queries over the recorded sightings.
type History struct {
	db        *DB
	sightings *SightingRepository
}

// NewHistory creates a history reader on db. It does not own db.
func NewHistory(db *DB) *History {
	return &History{db: db, sightings: NewSightingRepository(db)}
}

// RecentAircraft returns aircraft seen since the given time, most recent first.
func (h *History) RecentAircraft(ctx context.Context, since time.Time) ([]AircraftSummary, error) {
	return h.sightings.RecentAircraft(ctx, since)
}

// GetStats returns row counts for cycles, sightings and distinct aircraft.
func (h *History) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return h.db.GetStats(ctx)
}
