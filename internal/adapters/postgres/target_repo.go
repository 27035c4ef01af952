package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/questgeo/internal/core/domain"
)

// TargetRepo implements ports.TargetRepository with pgx.
type TargetRepo struct {
	db *DB
}

// NewTargetRepo creates a new TargetRepo.
func NewTargetRepo(db *DB) *TargetRepo {
	return &TargetRepo{db: db}
}

const upsertTargetSQL = `
	INSERT INTO quest_targets (id, quest_id, name, location, radius_meters)
	VALUES ($1, $2, $3,
	        CASE WHEN $4::float8 IS NULL OR $5::float8 IS NULL THEN NULL
	             ELSE ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography END,
	        $6)
	ON CONFLICT (id) DO UPDATE
	SET quest_id = EXCLUDED.quest_id, name = EXCLUDED.name,
	    location = EXCLUDED.location, radius_meters = EXCLUDED.radius_meters
`

// targetArgs flattens t into upsertTargetSQL arguments. A target without
// exactly two coordinates is stored with a NULL location so it reads back
// as unconfigured.
func targetArgs(t *domain.QuestTarget) []any {
	var lon, lat *float64
	if len(t.Target.Coordinates) == 2 {
		lon, lat = &t.Target.Coordinates[0], &t.Target.Coordinates[1]
	}
	return []any{t.ID, t.QuestID, t.Name, lon, lat, t.Target.RadiusMeters}
}

// Upsert stores a quest target.
func (r *TargetRepo) Upsert(ctx context.Context, t *domain.QuestTarget) error {
	if _, err := r.db.Pool.Exec(ctx, upsertTargetSQL, targetArgs(t)...); err != nil {
		return fmt.Errorf("upsert target %s: %w", t.ID, err)
	}
	return nil
}

// UpsertBatch writes targets in a single round trip.
func (r *TargetRepo) UpsertBatch(ctx context.Context, targets []domain.QuestTarget) error {
	if len(targets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range targets {
		batch.Queue(upsertTargetSQL, targetArgs(&targets[i])...)
	}
	if err := flushBatch(ctx, r.db, batch); err != nil {
		return fmt.Errorf("upsert %d targets: %w", len(targets), err)
	}
	return nil
}

// GetByID returns a quest target, or (nil, nil) when it does not exist.
func (r *TargetRepo) GetByID(ctx context.Context, id string) (*domain.QuestTarget, error) {
	var (
		t        domain.QuestTarget
		lon, lat *float64
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, quest_id, name,
		       ST_X(location::geometry) as lon,
		       ST_Y(location::geometry) as lat,
		       radius_meters, created_at
		FROM quest_targets WHERE id = $1
	`, id).Scan(&t.ID, &t.QuestID, &t.Name, &lon, &lat, &t.Target.RadiusMeters, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lon != nil && lat != nil {
		t.Target.Coordinates = []float64{*lon, *lat}
	}
	return &t, nil
}
