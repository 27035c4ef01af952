package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

// LocationRepo implements ports.LocationRepository with pgx.
type LocationRepo struct {
	db *DB
}

// NewLocationRepo creates a new LocationRepo.
func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db}
}

const upsertLocationSQL = `
	INSERT INTO locations (id, name, category, location, metadata)
	VALUES ($1, $2, NULLIF($3, ''), ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, category = EXCLUDED.category,
	    location = EXCLUDED.location, metadata = EXCLUDED.metadata
`

// Upsert inserts or updates a single location.
func (r *LocationRepo) Upsert(ctx context.Context, l *domain.Location) error {
	_, err := r.db.Pool.Exec(ctx, upsertLocationSQL,
		l.ID, l.Name, l.Category, l.Location.Lon, l.Location.Lat, l.Metadata)
	if err != nil {
		return fmt.Errorf("upsert location %s: %w", l.ID, err)
	}
	return nil
}

// UpsertBatch writes locs in a single round trip.
func (r *LocationRepo) UpsertBatch(ctx context.Context, locs []domain.Location) error {
	if len(locs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range locs {
		l := &locs[i]
		batch.Queue(upsertLocationSQL,
			l.ID, l.Name, l.Category, l.Location.Lon, l.Location.Lat, l.Metadata)
	}
	if err := flushBatch(ctx, r.db, batch); err != nil {
		return fmt.Errorf("upsert %d locations: %w", len(locs), err)
	}
	return nil
}

// GetByID returns a location, or (nil, nil) when it does not exist.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	var l domain.Location
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(category, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(metadata, '{}'), created_at
		FROM locations WHERE id = $1
	`, id).Scan(
		&l.ID, &l.Name, &l.Category,
		&l.Location.Lat, &l.Location.Lon,
		&l.Metadata, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindWithin returns at most limit locations whose point falls in the box,
// nearest to origin first. The && operator uses the GiST index and <-> orders
// by geography distance; exact radius filtering is left to the caller.
func (r *LocationRepo) FindWithin(ctx context.Context, b geospatial.Bounds, origin domain.GeoPoint, limit int) ([]domain.Location, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(category, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(metadata, '{}'), created_at
		FROM locations
		WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography
		LIMIT $7
	`, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat, origin.Lon, origin.Lat, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []domain.Location
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(
			&l.ID, &l.Name, &l.Category,
			&l.Location.Lat, &l.Location.Lon,
			&l.Metadata, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}
