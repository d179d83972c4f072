// Package geo provides the geodesic helpers used to turn an observer position
// and a search radius into a latitude/longitude bounding box.
//
// All angles exposed by this package are in decimal degrees unless the name
// says otherwise. Earth's shape is modelled with the WGS-84 ellipsoid.
package geo

import "math"

// Semi-axes of the WGS-84 reference ellipsoid.
const (
	// WGS84A is the equatorial (major) semi-axis in meters
	WGS84A = 6378137.0

	// WGS84B is the polar (minor) semi-axis in meters
	WGS84B = 6356752.3
)

const (
	// MetersPerKm converts kilometers to meters
	MetersPerKm = 1000.0

	// KmPerNauticalMile converts nautical miles to kilometers
	KmPerNauticalMile = 1.852
)

// DegreesToRadians converts an angle in degrees to radians.
func DegreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// RadiansToDegrees converts an angle in radians to degrees.
func RadiansToDegrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// NauticalMilesToKm converts a distance in nautical miles to kilometers.
func NauticalMilesToKm(nm float64) float64 {
	return nm * KmPerNauticalMile
}

// EarthRadiusAt returns the geocentric radius of the WGS-84 ellipsoid at the
// given latitude, in meters. latRad is in radians.
//
// Formula: https://en.wikipedia.org/wiki/Earth_radius#Geocentric_radius
//
//	R = sqrt( ((a²cos φ)² + (b²sin φ)²) / ((a cos φ)² + (b sin φ)²) )
func EarthRadiusAt(latRad float64) float64 {
	cosLat := math.Cos(latRad)
	sinLat := math.Sin(latRad)

	an := WGS84A * WGS84A * cosLat
	bn := WGS84B * WGS84B * sinLat
	ad := WGS84A * cosLat
	bd := WGS84B * sinLat

	return math.Sqrt((an*an + bn*bn) / (ad*ad + bd*bd))
}
