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

// NewsletterRepository stores newsletter subscriptions.
type NewsletterRepository struct {
	db *sqlx.DB
}

// NewNewsletterRepository constructs a NewsletterRepository.
func NewNewsletterRepository(db *sqlx.DB) *NewsletterRepository {
	return &NewsletterRepository{db: db}
}

// Subscribe records email as an active subscriber, reactivating a previous
// subscription instead of creating a duplicate.
func (r *NewsletterRepository) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscription, error) {
	const query = `INSERT INTO newsletter_subscriptions (id, email, is_active, created_at)
        VALUES ($1, $2, TRUE, $3)
        ON CONFLICT (email) DO UPDATE SET is_active = TRUE, unsubscribed_at = NULL
        RETURNING id, email, is_active, created_at, unsubscribed_at`
	var sub models.NewsletterSubscription
	if err := r.db.GetContext(ctx, &sub, query, uuid.NewString(), email, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("subscribe newsletter: %w", err)
	}
	return &sub, nil
}

// Unsubscribe deactivates email. Unknown addresses yield sql.ErrNoRows.
func (r *NewsletterRepository) Unsubscribe(ctx context.Context, email string) error {
	const query = `UPDATE newsletter_subscriptions SET is_active = FALSE, unsubscribed_at = $1 WHERE email = $2`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), email)
	if err != nil {
		return fmt.Errorf("unsubscribe newsletter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns a page of subscriptions, optionally only active ones.
func (r *NewsletterRepository) List(ctx context.Context, activeOnly bool, page, limit int) ([]models.NewsletterSubscription, int, error) {
	where := ""
	if activeOnly {
		where = " WHERE is_active = TRUE"
	}
	page, limit = models.NormalizePage(page, limit)
	query := fmt.Sprintf(`SELECT id, email, is_active, created_at, unsubscribed_at FROM newsletter_subscriptions%s
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, limit, (page-1)*limit)
	subs := make([]models.NewsletterSubscription, 0)
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, 0, fmt.Errorf("list newsletter subscriptions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM newsletter_subscriptions"+where); err != nil {
		return nil, 0, fmt.Errorf("count newsletter subscriptions: %w", err)
	}
	return subs, total, nil
}

// ContactRepository stores contact form messages.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository constructs a ContactRepository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create stores a new query with status new.
func (r *ContactRepository) Create(ctx context.Context, query *models.ContactQuery) error {
	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query.CreatedAt = now
	query.UpdatedAt = now
	query.Status = models.ContactNew
	const stmt = `INSERT INTO contact_queries (id, name, email, subject, message, status, created_at, updated_at)
        VALUES (:id, :name, :email, :subject, :message, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, stmt, query); err != nil {
		return fmt.Errorf("create contact query: %w", err)
	}
	return nil
}

// List returns a page of contact queries, optionally narrowed by status.
func (r *ContactRepository) List(ctx context.Context, status *models.ContactStatus, page, limit int) ([]models.ContactQuery, int, error) {
	var conditions []string
	var args []interface{}
	if status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *status)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	page, limit = models.NormalizePage(page, limit)
	query := fmt.Sprintf(`SELECT id, name, email, subject, message, status, created_at, updated_at FROM contact_queries%s
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, limit, (page-1)*limit)
	queries := make([]models.ContactQuery, 0)
	if err := r.db.SelectContext(ctx, &queries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contact queries: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM contact_queries"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count contact queries: %w", err)
	}
	return queries, total, nil
}

// UpdateStatus moves a contact query to status.
func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status models.ContactStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE contact_queries SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update contact query: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountOpen counts queries not yet resolved.
func (r *ContactRepository) CountOpen(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM contact_queries WHERE status <> 'resolved'`); err != nil {
		return 0, fmt.Errorf("count open contact queries: %w", err)
	}
	return total, nil
}

// CountActiveSubscribers counts active newsletter subscribers.
func (r *NewsletterRepository) CountActiveSubscribers(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM newsletter_subscriptions WHERE is_active = TRUE`); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return total, nil
}
