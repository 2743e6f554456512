package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medrotation-api/internal/models"
)

const reviewSelect = `SELECT r.id, r.user_id, r.program_id, r.rating, r.title, r.content, r.status, r.moderated_by, r.moderated_at,
        r.created_at, r.updated_at, TRIM(u.first_name || ' ' || u.last_name) AS author_name
        FROM reviews r JOIN users u ON u.id = r.user_id`

// ReviewRepository stores program reviews and their moderation state.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review in pending moderation.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now
	review.Status = models.ReviewPending
	const query = `INSERT INTO reviews (id, user_id, program_id, rating, title, content, status, created_at, updated_at)
        VALUES (:id, :user_id, :program_id, :rating, :title, :content, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// FindByID fetches a review.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.ReviewDetail, error) {
	var review models.ReviewDetail
	if err := r.db.GetContext(ctx, &review, reviewSelect+" WHERE r.id = $1", id); err != nil {
		return nil, err
	}
	return &review, nil
}

// List returns a page of reviews matching filter, newest first.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.ProgramID != nil {
		conditions = append(conditions, fmt.Sprintf("r.program_id = $%d", len(args)+1))
		args = append(args, *filter.ProgramID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")
	page, limit := models.NormalizePage(filter.Page, filter.Limit)

	query := fmt.Sprintf("%s %s ORDER BY r.created_at DESC, r.id DESC LIMIT %d OFFSET %d", reviewSelect, where, limit, (page-1)*limit)
	reviews := make([]models.ReviewDetail, 0)
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reviews r "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}

// Moderate sets the moderation outcome of a review.
func (r *ReviewRepository) Moderate(ctx context.Context, id string, status models.ReviewStatus, moderatorID string) error {
	now := time.Now().UTC()
	const query = `UPDATE reviews SET status = $1, moderated_by = $2, moderated_at = $3, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, status, moderatorID, now, id)
	if err != nil {
		return fmt.Errorf("moderate review: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RatingSummary averages the approved reviews of a program.
func (r *ReviewRepository) RatingSummary(ctx context.Context, programID string) (*models.RatingSummary, error) {
	const query = `SELECT $1::text AS program_id, COALESCE(AVG(rating), 0)::float8 AS average, COUNT(*) AS count
        FROM reviews WHERE program_id = $1 AND status = 'approved'`
	var summary models.RatingSummary
	if err := r.db.GetContext(ctx, &summary, query, programID); err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return &summary, nil
}

// CountPending counts reviews awaiting moderation.
func (r *ReviewRepository) CountPending(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reviews WHERE status = 'pending'`); err != nil {
		return 0, fmt.Errorf("count pending reviews: %w", err)
	}
	return total, nil
}
