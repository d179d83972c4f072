package geo

import (
	"fmt"
	"math"
)

// SurroundingArea returns the bounding box extending halfSideKm kilometers
// north, south, east and west of center.
//
// The Earth surface is approximated locally by a sphere whose radius is the
// WGS-84 geocentric radius at the center's latitude. Longitude deltas are
// scaled by the radius of the parallel, which shrinks to zero at the poles.
//
// The resulting area is validated before it is returned: a box that would
// cross a pole or the antimeridian fails with ErrInvalidCoordinate rather than
// being clamped or wrapped.
func SurroundingArea(center Position, halfSideKm float64) (Area, error) {
	if err := center.Validate(); err != nil {
		return Area{}, fmt.Errorf("center: %w", err)
	}
	if math.IsNaN(halfSideKm) || math.IsInf(halfSideKm, 0) || halfSideKm <= 0 {
		return Area{}, fmt.Errorf("%w: half side %g km must be positive", ErrInvalidRadius, halfSideKm)
	}

	lat := DegreesToRadians(center.Latitude)
	lon := DegreesToRadians(center.Longitude)
	halfSide := halfSideKm * MetersPerKm

	// Radius of Earth at the given latitude
	radius := EarthRadiusAt(lat)
	// Radius of the parallel at the given latitude
	parallelRadius := radius * math.Cos(lat)

	latMin := lat - halfSide/radius
	latMax := lat + halfSide/radius
	lonMin := lon - halfSide/parallelRadius
	lonMax := lon + halfSide/parallelRadius

	area := Area{
		Corner1: Position{Latitude: RadiansToDegrees(latMin), Longitude: RadiansToDegrees(lonMin)},
		Corner2: Position{Latitude: RadiansToDegrees(latMax), Longitude: RadiansToDegrees(lonMax)},
	}

	if err := area.Validate(); err != nil {
		return Area{}, fmt.Errorf("area around %s (%g km): %w", center, halfSideKm, err)
	}

	return area, nil
}
