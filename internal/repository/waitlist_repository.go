package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

const waitlistSelect = `SELECT w.id, w.user_id, w.program_id, w.position, w.created_at, p.title AS program_title, u.email AS user_email
        FROM waitlist w
        JOIN programs p ON p.id = w.program_id
        JOIN users u ON u.id = w.user_id`

// WaitlistRepository stores program waitlist positions.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs a WaitlistRepository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Join appends userID to the program's waitlist. The position comes from the
// program's waitlist sequence, bumped in the same transaction, so positions
// grow monotonically and are never reused after someone leaves. Joining a
// list the user is already on returns the existing entry.
func (r *WaitlistRepository) Join(ctx context.Context, userID, programID string) (entry *models.WaitlistEntry, err error) {
	existing, err := r.find(ctx, userID, programID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin waitlist transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var position int
	const bump = `UPDATE programs SET waitlist_seq = waitlist_seq + 1 WHERE id = $1 RETURNING waitlist_seq`
	if err = tx.GetContext(ctx, &position, bump, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("next waitlist position: %w", err)
	}

	entry = &models.WaitlistEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProgramID: programID,
		Position:  position,
		CreatedAt: time.Now().UTC(),
	}
	const insert = `INSERT INTO waitlist (id, user_id, program_id, position, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insert, entry.ID, entry.UserID, entry.ProgramID, entry.Position, entry.CreatedAt); err != nil {
		if appErrors.IsUniqueViolation(err) {
			// A concurrent join won; hand back its entry.
			_ = tx.Rollback()
			return r.find(ctx, userID, programID)
		}
		return nil, fmt.Errorf("insert waitlist entry: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit waitlist entry: %w", err)
	}
	return entry, nil
}

func (r *WaitlistRepository) find(ctx context.Context, userID, programID string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	const query = `SELECT id, user_id, program_id, position, created_at FROM waitlist WHERE user_id = $1 AND program_id = $2`
	if err := r.db.GetContext(ctx, &entry, query, userID, programID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Leave removes the user from a program's waitlist.
func (r *WaitlistRepository) Leave(ctx context.Context, userID, programID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM waitlist WHERE user_id = $1 AND program_id = $2`, userID, programID)
	if err != nil {
		return fmt.Errorf("leave waitlist: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByUser returns every waitlist the user is on.
func (r *WaitlistRepository) ListByUser(ctx context.Context, userID string) ([]models.WaitlistDetail, error) {
	entries := make([]models.WaitlistDetail, 0)
	if err := r.db.SelectContext(ctx, &entries, waitlistSelect+" WHERE w.user_id = $1 ORDER BY w.created_at DESC", userID); err != nil {
		return nil, fmt.Errorf("list user waitlist: %w", err)
	}
	return entries, nil
}

// ListByProgram returns a program's queue in position order.
func (r *WaitlistRepository) ListByProgram(ctx context.Context, programID string) ([]models.WaitlistDetail, error) {
	entries := make([]models.WaitlistDetail, 0)
	if err := r.db.SelectContext(ctx, &entries, waitlistSelect+" WHERE w.program_id = $1 ORDER BY w.position", programID); err != nil {
		return nil, fmt.Errorf("list program waitlist: %w", err)
	}
	return entries, nil
}
