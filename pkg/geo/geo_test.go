package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDegreeRadianRoundTrip verifies the two conversions are inverses.
func TestDegreeRadianRoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 45, -90, 180, 359.999, 1e-9, 12345.678, -0.5}
	for _, x := range values {
		assert.InDelta(t, x, DegreesToRadians(RadiansToDegrees(x)), 1e-9*math.Max(1, math.Abs(x)))
		assert.InDelta(t, x, RadiansToDegrees(DegreesToRadians(x)), 1e-9*math.Max(1, math.Abs(x)))
	}

	assert.InDelta(t, math.Pi, DegreesToRadians(180), 1e-15)
	assert.InDelta(t, 90.0, RadiansToDegrees(math.Pi/2), 1e-12)
}

// TestEarthRadiusAt checks the ellipsoid radius at the equator, pole and mid latitude.
func TestEarthRadiusAt(t *testing.T) {
	tests := []struct {
		name      string
		latRad    float64
		want      float64
		tolerance float64
	}{
		{"Equator", 0, WGS84A, 1e-6},
		{"North pole", math.Pi / 2, WGS84B, 1e-3},
		{"South pole", -math.Pi / 2, WGS84B, 1e-3},
		{"45 degrees", DegreesToRadians(45), 6367489.5, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EarthRadiusAt(tt.latRad), tt.tolerance)
		})
	}

	// The radius must shrink monotonically from equator to pole.
	prev := EarthRadiusAt(0)
	for deg := 5.0; deg <= 90; deg += 5 {
		r := EarthRadiusAt(DegreesToRadians(deg))
		assert.Less(t, r, prev, "radius at %v degrees", deg)
		prev = r
	}
}

func TestNauticalMilesToKm(t *testing.T) {
	assert.InDelta(t, 18.52, NauticalMilesToKm(10), 1e-12)
}

// TestPositionValidate covers the inclusive coordinate bounds.
func TestPositionValidate(t *testing.T) {
	valid := []Position{
		{90, 180},
		{-90, -180},
		{0, 0},
		{40.0, -75.0},
	}
	for _, p := range valid {
		assert.NoError(t, p.Validate(), "position %v", p)
	}

	invalid := []struct {
		pos  Position
		axis string
	}{
		{Position{91, 0}, "latitude"},
		{Position{-90.0001, 0}, "latitude"},
		{Position{0, 180.5}, "longitude"},
		{Position{0, -181}, "longitude"},
		{Position{math.NaN(), 0}, "latitude"},
		{Position{0, math.NaN()}, "longitude"},
	}
	for _, tt := range invalid {
		err := tt.pos.Validate()
		require.Error(t, err, "position %v", tt.pos)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)

		var ce *CoordinateError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, tt.axis, ce.Axis)
	}
}

// TestAreaBBox checks that min/max are recomputed regardless of corner order.
func TestAreaBBox(t *testing.T) {
	a := Area{
		Corner1: Position{Latitude: 41, Longitude: -74},
		Corner2: Position{Latitude: 40, Longitude: -75},
	}

	minLat, maxLat, minLon, maxLon := a.BBox()
	assert.Equal(t, 40.0, minLat)
	assert.Equal(t, 41.0, maxLat)
	assert.Equal(t, -75.0, minLon)
	assert.Equal(t, -74.0, maxLon)

	assert.True(t, a.Contains(Position{40.5, -74.5}))
	assert.True(t, a.Contains(Position{40, -75}))
	assert.False(t, a.Contains(Position{41.1, -74.5}))
	assert.False(t, a.Contains(Position{40.5, -73.9}))
}

func TestAreaValidate(t *testing.T) {
	ok := Area{Corner1: Position{10, 10}, Corner2: Position{11, 11}}
	assert.NoError(t, ok.Validate())

	bad := Area{Corner1: Position{10, 10}, Corner2: Position{95, 11}}
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	assert.Contains(t, err.Error(), "corner2")
}

// TestSurroundingArea exercises the bounding box computation.
func TestSurroundingArea(t *testing.T) {
	t.Run("Philadelphia 10 km", func(t *testing.T) {
		center := Position{Latitude: 40.0, Longitude: -75.0}
		area, err := SurroundingArea(center, 10)
		require.NoError(t, err)

		minLat, maxLat, minLon, maxLon := area.BBox()

		// 10 km is ~0.09 degrees of latitude on each side of the center,
		// so the full span is ~0.18 degrees.
		assert.InDelta(t, 0.09, center.Latitude-minLat, 0.001)
		assert.InDelta(t, 0.09, maxLat-center.Latitude, 0.001)
		assert.InDelta(t, 0.18, maxLat-minLat, 0.002)

		// Longitude degrees are shorter at 40N, so the span is wider by 1/cos(40).
		lonSpan := maxLon - minLon
		assert.InDelta(t, (maxLat-minLat)/math.Cos(DegreesToRadians(40)), lonSpan, 1e-9)

		assert.True(t, area.Contains(center))
	})

	t.Run("Corner order is min then max", func(t *testing.T) {
		area, err := SurroundingArea(Position{Latitude: -33.9, Longitude: 151.2}, 25)
		require.NoError(t, err)
		assert.Less(t, area.Corner1.Latitude, area.Corner2.Latitude)
		assert.Less(t, area.Corner1.Longitude, area.Corner2.Longitude)
	})

	t.Run("Min is never above max", func(t *testing.T) {
		for lat := -80.0; lat <= 80; lat += 10 {
			for lon := -170.0; lon <= 170; lon += 20 {
				for _, r := range []float64{0.001, 1, 10, 100} {
					area, err := SurroundingArea(Position{lat, lon}, r)
					require.NoError(t, err, "lat=%v lon=%v r=%v", lat, lon, r)
					minLat, maxLat, minLon, maxLon := area.BBox()
					assert.LessOrEqual(t, minLat, maxLat)
					assert.LessOrEqual(t, minLon, maxLon)
				}
			}
		}
	})

	t.Run("Invalid center", func(t *testing.T) {
		_, err := SurroundingArea(Position{Latitude: 91, Longitude: 0}, 10)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})

	t.Run("Invalid radius", func(t *testing.T) {
		for _, r := range []float64{0, -5, math.NaN(), math.Inf(1)} {
			_, err := SurroundingArea(Position{Latitude: 40, Longitude: -75}, r)
			assert.ErrorIs(t, err, ErrInvalidRadius, "radius %v", r)
		}
	})

	t.Run("Pole is rejected", func(t *testing.T) {
		_, err := SurroundingArea(Position{Latitude: 90, Longitude: 0}, 10)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)

		_, err = SurroundingArea(Position{Latitude: -89.95, Longitude: 0}, 10)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})

	t.Run("Antimeridian is rejected", func(t *testing.T) {
		_, err := SurroundingArea(Position{Latitude: 0, Longitude: 179.99}, 10)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)

		_, err = SurroundingArea(Position{Latitude: 0, Longitude: -179.99}, 10)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})
}

func TestDistanceAndBearing(t *testing.T) {
	origin := Position{Latitude: 40, Longitude: -75}

	tests := []struct {
		name    string
		to      Position
		km      float64
		bearing float64
	}{
		{"North", Position{Latitude: 41, Longitude: -75}, 111.195, 0},
		{"South", Position{Latitude: 39, Longitude: -75}, 111.195, 180},
		{"East on the equator", Position{Latitude: 0, Longitude: 1}, 111.195, 90},
		{"West on the equator", Position{Latitude: 0, Longitude: -1}, 111.195, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from := origin
			if tt.to.Latitude == 0 {
				from = Position{}
			}
			assert.InDelta(t, tt.km, DistanceKm(from, tt.to), 0.01)
			assert.InDelta(t, tt.bearing, Bearing(from, tt.to), 1e-9)
		})
	}

	assert.Zero(t, DistanceKm(origin, origin))
}

func TestLook(t *testing.T) {
	observer := Position{Latitude: 40, Longitude: -75}

	t.Run("Directly overhead", func(t *testing.T) {
		look := Look(observer, observer, 3000)
		assert.Equal(t, 90.0, look.Elevation)
		assert.Zero(t, look.DistanceKm)
	})

	t.Run("Forty five degrees", func(t *testing.T) {
		target := Position{Latitude: 40.1, Longitude: -75}
		d := DistanceKm(observer, target)
		look := Look(observer, target, d*MetersPerKm)
		assert.InDelta(t, 45.0, look.Elevation, 1e-9)
		assert.InDelta(t, 0.0, look.Azimuth, 1e-9)
	})

	t.Run("On the ground", func(t *testing.T) {
		look := Look(observer, Position{Latitude: 40, Longitude: -74.9}, 0)
		assert.Zero(t, look.Elevation)
		assert.InDelta(t, 90.0, look.Azimuth, 0.1)
	})
}
