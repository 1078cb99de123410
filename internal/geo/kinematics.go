// Package geo provides the geodesic helpers shared by the track decoders and
// the live client. All functions are pure and safe for concurrent use; NaN
// inputs propagate NaN, callers guard where that matters.
package geo

import "math"

// EarthRadiusMeters is the spherical Earth radius used by all distance math.
const EarthRadiusMeters = 6371000.0

const metersPerNauticalMile = 1852.0

// HaversineMeters returns the great-circle distance in meters between two
// coordinates given in decimal degrees.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// BearingDegrees returns the initial forward azimuth from the first coordinate
// to the second, normalized to [0, 360).
func BearingDegrees(lat1, lng1, lat2, lng2 float64) float64 {
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	y := math.Sin(dLng) * math.Cos(la2)
	x := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLng)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// KnotsFromMetersPerSecond converts a speed in m/s to knots.
func KnotsFromMetersPerSecond(mps float64) float64 {
	return mps * 3600 / metersPerNauticalMile
}
