package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/unklstewy/overhead/internal/display"
	"github.com/unklstewy/overhead/pkg/opensky"
)

// SightingRepository handles database operations for poll cycles and the
// aircraft seen in them.
type SightingRepository struct {
	db *DB
}

// NewSightingRepository creates a new sighting repository.
func NewSightingRepository(db *DB) *SightingRepository {
	return &SightingRepository{db: db}
}

// AircraftSummary is one row of the aircraft table.
type AircraftSummary struct {
	ICAO24        string    `json:"icao24"`
	Callsign      *string   `json:"callsign"`
	OriginCountry string    `json:"origin_country"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	SightingCount int       `json:"sighting_count"`
}

const insertSightingSQL = `INSERT INTO sightings (
	cycle_id, seq, icao24, callsign, origin_country, time_position, last_contact,
	latitude, longitude, baro_altitude, on_ground, velocity, heading,
	vertical_rate, sensors, geo_altitude, squawk, spi, position_source
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

const upsertAircraftSQL = `INSERT INTO aircraft (
	icao24, callsign, origin_country, first_seen, last_seen, sighting_count
) VALUES ($1, $2, $3, $4, $4, 1)
ON CONFLICT (icao24) DO UPDATE SET
	callsign = COALESCE(EXCLUDED.callsign, aircraft.callsign),
	origin_country = EXCLUDED.origin_country,
	last_seen = EXCLUDED.last_seen,
	sighting_count = aircraft.sighting_count + 1`

// RecordSnapshot stores a poll cycle with all of its sightings in one transaction.
func (r *SightingRepository) RecordSnapshot(ctx context.Context, snap display.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	minLat, maxLat, minLon, maxLon := snap.Area.BBox()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO poll_cycles (
			cycle_id, taken_at, api_time, center_lat, center_lon,
			lat_min, lat_max, lon_min, lon_max, aircraft_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		snap.CycleID, snap.Taken.UTC(), snap.Time,
		snap.Center.Latitude, snap.Center.Longitude,
		minLat, maxLat, minLon, maxLon, snap.Count,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll cycle: %w", err)
	}

	sightingStmt, err := tx.PrepareContext(ctx, insertSightingSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare sighting insert: %w", err)
	}
	defer sightingStmt.Close()

	aircraftStmt, err := tx.PrepareContext(ctx, upsertAircraftSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare aircraft upsert: %w", err)
	}
	defer aircraftStmt.Close()

	for i, s := range snap.States {
		if _, err := sightingStmt.ExecContext(ctx, sightingArgs(snap.CycleID, i, s)...); err != nil {
			return fmt.Errorf("failed to insert sighting %s: %w", s.ICAO24, err)
		}
		if _, err := aircraftStmt.ExecContext(ctx, s.ICAO24, trimmedCallsign(s), s.OriginCountry, snap.Taken.UTC()); err != nil {
			return fmt.Errorf("failed to upsert aircraft %s: %w", s.ICAO24, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// sightingArgs returns the insertSightingSQL arguments for one state vector.
// Nil pointers are stored as NULL.
func sightingArgs(cycleID string, seq int, s opensky.AircraftState) []interface{} {
	var sensors interface{}
	if s.Sensors != nil {
		sensors = pq.Array(s.Sensors)
	}
	return []interface{}{
		cycleID, seq, s.ICAO24, trimmedCallsign(s), s.OriginCountry,
		s.TimePosition, s.LastContact,
		s.Latitude, s.Longitude, s.BaroAltitude, s.OnGround,
		s.Velocity, s.Heading, s.VerticalRate, sensors,
		s.GeoAltitude, s.Squawk, s.SPI, int(s.PositionSource),
	}
}

// trimmedCallsign returns the callsign without padding, or nil when it is
// missing or blank.
func trimmedCallsign(s opensky.AircraftState) *string {
	if s.Callsign == nil {
		return nil
	}
	cs := strings.TrimSpace(*s.Callsign)
	if cs == "" {
		return nil
	}
	return &cs
}

// RecentAircraft returns aircraft seen since the given time, most recent first.
func (r *SightingRepository) RecentAircraft(ctx context.Context, since time.Time) ([]AircraftSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT icao24, callsign, origin_country, first_seen, last_seen, sighting_count
		 FROM aircraft
		 WHERE last_seen >= $1
		 ORDER BY last_seen DESC, icao24`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft: %w", err)
	}
	defer rows.Close()

	var result []AircraftSummary
	for rows.Next() {
		var a AircraftSummary
		if err := rows.Scan(&a.ICAO24, &a.Callsign, &a.OriginCountry, &a.FirstSeen, &a.LastSeen, &a.SightingCount); err != nil {
			return nil, fmt.Errorf("failed to scan aircraft: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
