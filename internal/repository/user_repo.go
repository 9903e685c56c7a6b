package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"wastereminder/internal/geo"
	"wastereminder/internal/model"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// FindActiveVerifiedCitizensNear returns active, email-verified, geolocated
// citizens inside box, ascending id. The box is a coarse prefilter only.
func (r *UserRepository) FindActiveVerifiedCitizensNear(ctx context.Context, box geo.BoundingBox) ([]model.Citizen, error) {
	query := `
		SELECT id, email, COALESCE(full_name, ''), latitude, longitude,
		       lifecycle_state, COALESCE(lifecycle_reason, ''), lifecycle_changed_at
		FROM users
		WHERE role = 'CITIZEN'
		  AND lifecycle_state = 'ACTIVE'
		  AND email_verified = TRUE
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("find citizens near: %w", err)
	}
	defer rows.Close()

	citizens := []model.Citizen{}
	for rows.Next() {
		var (
			c             model.Citizen
			lat, lng      *float64
			state, reason string
			changedAt     time.Time
		)
		if err := rows.Scan(&c.ID, &c.Email, &c.Name, &lat, &lng, &state, &reason, &changedAt); err != nil {
			return nil, fmt.Errorf("scan citizen: %w", err)
		}
		if c.Lifecycle, err = toLifecycle(state, reason, changedAt); err != nil {
			return nil, fmt.Errorf("citizen %d: %w", c.ID, err)
		}
		c.Location = geo.PointFrom(lat, lng)
		c.EmailVerified = true
		citizens = append(citizens, c)
	}
	return citizens, rows.Err()
}
