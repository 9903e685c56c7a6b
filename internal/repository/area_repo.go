package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wastereminder/internal/geo"
	"wastereminder/internal/model"
)

type AreaRepository struct {
	db *pgxpool.Pool
}

func NewAreaRepository(db *pgxpool.Pool) *AreaRepository {
	return &AreaRepository{db: db}
}

const areaColumns = `id, name, COALESCE(municipality, ''), COALESCE(neighborhood, ''),
	center_latitude, center_longitude, ` + lifecycleColumns

func scanArea(row pgx.Row) (*model.Area, error) {
	var (
		a         model.Area
		lat, lng  *float64
		state     string
		reason    string
		changedAt time.Time
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Municipality, &a.Neighborhood, &lat, &lng, &state, &reason, &changedAt); err != nil {
		return nil, err
	}
	lc, err := toLifecycle(state, reason, changedAt)
	if err != nil {
		return nil, fmt.Errorf("area %d: %w", a.ID, err)
	}
	a.Center = geo.PointFrom(lat, lng)
	a.Lifecycle = lc
	return &a, nil
}

// GetByID returns the area regardless of its lifecycle state.
func (r *AreaRepository) GetByID(ctx context.Context, id int64) (*model.Area, error) {
	query := `SELECT ` + areaColumns + ` FROM areas WHERE id = $1`
	a, err := scanArea(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "area", id)
	}
	return a, nil
}

// ListActive returns active areas ordered by id.
func (r *AreaRepository) ListActive(ctx context.Context) ([]model.Area, error) {
	query := `SELECT ` + areaColumns + ` FROM areas WHERE lifecycle_state = 'ACTIVE' ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active areas: %w", err)
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, *a)
	}
	return areas, rows.Err()
}
