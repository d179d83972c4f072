package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidCoordinate is returned when a latitude or longitude lies
	// outside [-90, 90] or [-180, 180] respectively.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrInvalidRadius is returned when a search radius is not a positive,
	// finite number.
	ErrInvalidRadius = errors.New("invalid radius")
)

// CoordinateError describes which axis of a Position failed validation.
type CoordinateError struct {
	Axis  string // "latitude" or "longitude"
	Value float64
	Min   float64
	Max   float64
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("invalid %s %g: must be in [%g, %g]", e.Axis, e.Value, e.Min, e.Max)
}

// Is lets errors.Is(err, ErrInvalidCoordinate) match a *CoordinateError.
func (e *CoordinateError) Is(target error) bool {
	return target == ErrInvalidCoordinate
}

// Position is a point on Earth's surface in WGS-84 decimal degrees.
type Position struct {
	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude"`
}

// Validate checks that both coordinates are within range. Bounds are
// inclusive, so the poles and the antimeridian itself are valid.
func (p Position) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return &CoordinateError{Axis: "latitude", Value: p.Latitude, Min: -90, Max: 90}
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return &CoordinateError{Axis: "longitude", Value: p.Longitude, Min: -180, Max: 180}
	}
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", p.Latitude, p.Longitude)
}

// Area is an axis-aligned latitude/longitude rectangle given by two opposite
// corners. The corners are not required to be ordered; BBox always recomputes
// the extremes from the pair.
type Area struct {
	Corner1 Position `json:"corner1"`
	Corner2 Position `json:"corner2"`
}

// Validate checks both corners.
func (a Area) Validate() error {
	if err := a.Corner1.Validate(); err != nil {
		return fmt.Errorf("corner1: %w", err)
	}
	if err := a.Corner2.Validate(); err != nil {
		return fmt.Errorf("corner2: %w", err)
	}
	return nil
}

// BBox returns (minLat, maxLat, minLon, maxLon).
func (a Area) BBox() (minLat, maxLat, minLon, maxLon float64) {
	minLat = math.Min(a.Corner1.Latitude, a.Corner2.Latitude)
	maxLat = math.Max(a.Corner1.Latitude, a.Corner2.Latitude)
	minLon = math.Min(a.Corner1.Longitude, a.Corner2.Longitude)
	maxLon = math.Max(a.Corner1.Longitude, a.Corner2.Longitude)
	return minLat, maxLat, minLon, maxLon
}

// Contains reports whether p lies inside the area, edges included.
func (a Area) Contains(p Position) bool {
	minLat, maxLat, minLon, maxLon := a.BBox()
	return p.Latitude >= minLat && p.Latitude <= maxLat &&
		p.Longitude >= minLon && p.Longitude <= maxLon
}

func (a Area) String() string {
	minLat, maxLat, minLon, maxLon := a.BBox()
	return fmt.Sprintf("[%.4f..%.4f, %.4f..%.4f]", minLat, maxLat, minLon, maxLon)
}
