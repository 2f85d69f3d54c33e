package cloud

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-lms/backend/internal/models"
)

// ErrShareNotFound is returned when a share key does not exist.
var ErrShareNotFound = errors.New("share not found")

// Repository handles cloud share links.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a share repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateShare inserts a share link.
func (r *Repository) CreateShare(ctx context.Context, s *models.CloudShare) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO cloud_shares (key, type, path, name, expires_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.Key, s.Type, s.Path, s.Name, s.ExpiresAt).Scan(&s.ID)
}

// GetShare returns the share for a key.
func (r *Repository) GetShare(ctx context.Context, key string) (*models.CloudShare, error) {
	var s models.CloudShare
	err := r.pool.QueryRow(ctx,
		`SELECT id, key, type, path, name, expires_at FROM cloud_shares WHERE key = $1`,
		key).Scan(&s.ID, &s.Key, &s.Type, &s.Path, &s.Name, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteExpired removes share rows whose expiry has passed.
func (r *Repository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cloud_shares WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
