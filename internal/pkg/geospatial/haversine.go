// Package geospatial holds the spherical-Earth primitives shared by the
// verification core. Nothing here validates its input: callers run
// IsValidCoordinates first, otherwise NaN or nonsense comes back out.
package geospatial

import "math"

// EarthRadiusMeters is the mean Earth radius used by every spherical formula.
const EarthRadiusMeters = 6371000.0

// Distance calculates the great-circle distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := ToRadians(lat2 - lat1)
	dLon := ToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(ToRadians(lat1))*math.Cos(ToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// RadiusCheck is the outcome of IsWithinRadius.
type RadiusCheck struct {
	IsWithin     bool    `json:"is_within"`
	Distance     float64 `json:"distance"`
	RadiusMeters float64 `json:"radius_meters"`
}

// IsWithinRadius reports whether the user point lies within radiusMeters of the target.
func IsWithinRadius(userLat, userLon, targetLat, targetLon, radiusMeters float64) RadiusCheck {
	d := Distance(userLat, userLon, targetLat, targetLon)
	return RadiusCheck{
		IsWithin:     d <= radiusMeters,
		Distance:     d,
		RadiusMeters: radiusMeters,
	}
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
