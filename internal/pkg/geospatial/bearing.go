package geospatial

import "math"

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Bearing returns the initial great-circle bearing from point 1 to point 2
// in degrees clockwise from north, within [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := ToRadians(lat1)
	φ2 := ToRadians(lat2)
	Δλ := ToRadians(lon2 - lon1)

	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)

	deg := ToDegrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// Direction maps a bearing to the nearest of the eight compass points.
// Bearings outside [0, 360) wrap around.
func Direction(bearing float64) string {
	idx := int(math.Round(bearing/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return compassPoints[idx]
}
