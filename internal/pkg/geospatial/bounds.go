package geospatial

import "math"

// metersPerDegreeLat is the planar approximation of one degree of latitude.
const metersPerDegreeLat = 111320.0

// Bounds is an axis-aligned latitude/longitude rectangle.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
// The longitude span grows without bound as |lat| approaches 90; guard the poles.
func BoundingBox(lat, lon, radiusMeters float64) Bounds {
	latDelta := radiusMeters / metersPerDegreeLat
	lonDelta := radiusMeters / (metersPerDegreeLat * math.Cos(ToRadians(lat)))

	return Bounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// Split returns the box as rectangles that stay within [-180, 180] longitude.
// A box crossing the antimeridian is cut in two; one wider than the globe
// becomes a single full-width band. Latitudes are clamped to [-90, 90].
func (b Bounds) Split() []Bounds {
	b.MinLat = math.Max(b.MinLat, -90)
	b.MaxLat = math.Min(b.MaxLat, 90)

	if b.MaxLon-b.MinLon >= 360 {
		b.MinLon, b.MaxLon = -180, 180
		return []Bounds{b}
	}

	switch {
	case b.MinLon < -180:
		east, west := b, b
		east.MinLon = -180
		west.MinLon, west.MaxLon = b.MinLon+360, 180
		return []Bounds{east, west}
	case b.MaxLon > 180:
		east, west := b, b
		east.MaxLon = 180
		west.MinLon, west.MaxLon = -180, b.MaxLon-360
		return []Bounds{east, west}
	}
	return []Bounds{b}
}
