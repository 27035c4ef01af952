package geospatial

import "math"

// IsValidCoordinates reports whether lat/lon are finite and inside the WGS 84 ranges.
func IsValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
