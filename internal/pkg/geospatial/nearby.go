package geospatial

import (
	"cmp"
	"slices"
)

// Locatable is anything that can project itself onto a coordinate pair.
type Locatable interface {
	LatLon() (lat, lon float64)
}

// Nearby pairs a candidate with its distance from the query point.
type Nearby[T any] struct {
	Item     T
	Distance float64
}

// FindNearby keeps the candidates within maxDistanceMeters of the user point,
// sorted by ascending distance. Equal distances keep their input order.
func FindNearby[T Locatable](userLat, userLon float64, candidates []T, maxDistanceMeters float64) []Nearby[T] {
	out := make([]Nearby[T], 0, len(candidates))
	for _, c := range candidates {
		lat, lon := c.LatLon()
		d := Distance(userLat, userLon, lat, lon)
		if d <= maxDistanceMeters {
			out = append(out, Nearby[T]{Item: c, Distance: d})
		}
	}

	slices.SortStableFunc(out, func(a, b Nearby[T]) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return out
}
