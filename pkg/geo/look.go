package geo

import "math"

// MeanEarthRadiusKm is the WGS-84 mean radius used for great-circle distances.
const MeanEarthRadiusKm = 6371.0

// LookAngle describes where a target appears from an observer on the ground.
type LookAngle struct {
	// Elevation in degrees above the horizon; 90 is straight up
	Elevation float64

	// Azimuth in degrees from north (0-360)
	Azimuth float64

	// DistanceKm is the great-circle distance over the ground
	DistanceKm float64
}

// Bearing returns the initial great-circle bearing from one position to
// another in degrees, normalised to [0, 360).
func Bearing(from, to Position) float64 {
	lat1 := DegreesToRadians(from.Latitude)
	lat2 := DegreesToRadians(to.Latitude)
	dLon := DegreesToRadians(to.Longitude - from.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return normalizeAzimuth(RadiansToDegrees(math.Atan2(y, x)))
}

// DistanceKm returns the great-circle distance between two positions using
// the haversine formula.
func DistanceKm(from, to Position) float64 {
	lat1 := DegreesToRadians(from.Latitude)
	lat2 := DegreesToRadians(to.Latitude)
	dLat := lat2 - lat1
	dLon := DegreesToRadians(to.Longitude - from.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return MeanEarthRadiusKm * c
}

// Look returns the look angle from an observer at ground level to a target
// at altitudeM meters. Earth curvature is ignored in the elevation, which is
// fine at the few tens of kilometers an overhead box spans.
func Look(observer, target Position, altitudeM float64) LookAngle {
	d := DistanceKm(observer, target)
	elevation := 90.0
	if d > 0 {
		elevation = RadiansToDegrees(math.Atan2(altitudeM, d*MetersPerKm))
	}
	return LookAngle{
		Elevation:  elevation,
		Azimuth:    Bearing(observer, target),
		DistanceKm: d,
	}
}

func normalizeAzimuth(az float64) float64 {
	az = math.Mod(az, 360)
	if az < 0 {
		az += 360
	}
	return az
}
