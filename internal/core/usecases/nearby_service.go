package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/core/ports"
	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
	"github.com/samirrijal/questgeo/internal/pkg/metrics"
)

// ErrInvalidCoordinates is returned when a query point is out of range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

const (
	maxNearbyLimit     = 50
	maxNearbyRadius    = 10000.0
	defaultNearbyRange = 500.0
	// maxNearbyCandidates caps how many rows the box pre-filter may return.
	maxNearbyCandidates = 500
)

// NearbyService finds points of interest around a position.
type NearbyService struct {
	locations ports.LocationRepository
	cache     ports.CacheService
}

// NewNearbyService creates a new NearbyService.
func NewNearbyService(locations ports.LocationRepository, cache ports.CacheService) *NearbyService {
	return &NearbyService{locations: locations, cache: cache}
}

// FindNearby returns locations within radiusMeters of the given point,
// closest first, with Distance populated.
func (s *NearbyService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Location, error) {
	if !geospatial.IsValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("find nearby (%v, %v): %w", lat, lon, ErrInvalidCoordinates)
	}
	if limit <= 0 || limit > maxNearbyLimit {
		limit = maxNearbyLimit
	}
	if radiusMeters <= 0 {
		radiusMeters = defaultNearbyRange
	}
	if radiusMeters > maxNearbyRadius {
		radiusMeters = maxNearbyRadius
	}

	// Try cache
	cacheKey := fmt.Sprintf("nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var locs []domain.Location
			if err := json.Unmarshal(data, &locs); err == nil {
				metrics.CacheHits.WithLabelValues("nearby").Inc()
				return locs, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("nearby").Inc()
	}

	candidates, err := s.candidates(ctx, lat, lon, radiusMeters)
	if err != nil {
		return nil, err
	}

	nearby := geospatial.FindNearby(lat, lon, candidates, radiusMeters)
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}

	locs := make([]domain.Location, len(nearby))
	for i, n := range nearby {
		d := n.Distance
		locs[i] = n.Item
		locs[i].Distance = &d
	}
	metrics.NearbyQueryResults.Observe(float64(len(locs)))

	// Cache for 5 minutes (locations don't change frequently)
	if s.cache != nil {
		if data, err := json.Marshal(locs); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return locs, nil
}

// candidates queries every rectangle of the search box, one per side of the
// antimeridian, and merges the rows by ID.
func (s *NearbyService) candidates(ctx context.Context, lat, lon, radiusMeters float64) ([]domain.Location, error) {
	origin := domain.GeoPoint{Lat: lat, Lon: lon}
	boxes := geospatial.BoundingBox(lat, lon, radiusMeters).Split()

	if len(boxes) == 1 {
		locs, err := s.locations.FindWithin(ctx, boxes[0], origin, maxNearbyCandidates)
		if err != nil {
			return nil, fmt.Errorf("find locations within box: %w", err)
		}
		return locs, nil
	}

	var merged []domain.Location
	seen := make(map[string]bool)
	for _, box := range boxes {
		locs, err := s.locations.FindWithin(ctx, box, origin, maxNearbyCandidates)
		if err != nil {
			return nil, fmt.Errorf("find locations within box %+v: %w", box, err)
		}
		for _, l := range locs {
			if !seen[l.ID] {
				seen[l.ID] = true
				merged = append(merged, l)
			}
		}
	}
	return merged, nil
}
