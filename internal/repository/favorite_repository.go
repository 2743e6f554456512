package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medrotation-api/internal/models"
)

// FavoriteRepository stores program bookmarks.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository constructs a FavoriteRepository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add bookmarks a program. Adding twice is a no-op.
func (r *FavoriteRepository) Add(ctx context.Context, userID, programID string) error {
	const query = `INSERT INTO favorites (id, user_id, program_id, created_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, program_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, programID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove deletes a bookmark; removing a missing one is not an error.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, programID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND program_id = $2`, userID, programID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// Exists reports whether userID bookmarked programID.
func (r *FavoriteRepository) Exists(ctx context.Context, userID, programID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND program_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, userID, programID); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// ListByUser returns the user's bookmarks, newest first.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string) ([]models.FavoriteDetail, error) {
	const query = `SELECT f.id, f.user_id, f.program_id, f.created_at, p.title AS program_title, p.hospital_name, p.location, p.image_url
        FROM favorites f JOIN programs p ON p.id = f.program_id
        WHERE f.user_id = $1 ORDER BY f.created_at DESC`
	favorites := make([]models.FavoriteDetail, 0)
	if err := r.db.SelectContext(ctx, &favorites, query, userID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favorites, nil
}

// CountByUser counts a user's bookmarks.
func (r *FavoriteRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM favorites WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}
	return total, nil
}
