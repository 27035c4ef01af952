package ports

import (
	"context"

	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

// LocationRepository persists points of interest.
type LocationRepository interface {
	Upsert(ctx context.Context, loc *domain.Location) error
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	// FindWithin returns at most limit locations inside the box, nearest to
	// origin first, so truncation drops the farthest candidates.
	FindWithin(ctx context.Context, bounds geospatial.Bounds, origin domain.GeoPoint, limit int) ([]domain.Location, error)
}

// TargetRepository persists quest targets.
type TargetRepository interface {
	Upsert(ctx context.Context, target *domain.QuestTarget) error
	// GetByID returns (nil, nil) when the target does not exist.
	GetByID(ctx context.Context, id string) (*domain.QuestTarget, error)
}
