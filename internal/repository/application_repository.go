package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/medrotation-api/internal/models"
)

var (
	// ErrNoSeats means the program had no available seat to hand out.
	ErrNoSeats = errors.New("no available seats")
	// ErrStaleStatus means the application left the expected status before the write.
	ErrStaleStatus = errors.New("application status changed concurrently")
)

const applicationSelect = `SELECT a.id, a.user_id, a.program_id, a.status, a.cover_letter, a.documents, a.review_notes,
        a.reviewed_at, a.reviewed_by, a.created_at, a.updated_at,
        p.title AS program_title, p.hospital_name, p.preceptor_id AS program_preceptor_id, u.email AS applicant_email,
        TRIM(u.first_name || ' ' || u.last_name) AS applicant_name
        FROM applications a
        JOIN programs p ON p.id = a.program_id
        JOIN users u ON u.id = a.user_id`

// ApplicationRepository manages persistence for applications and the seat
// bookkeeping tied to their status.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts app unless the user already applied to the program.
// It reports whether a new row was written.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) (bool, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	if app.Documents == nil {
		app.Documents = []string{}
	}
	const query = `INSERT INTO applications (id, user_id, program_id, status, cover_letter, documents, created_at, updated_at)
        VALUES (:id, :user_id, :program_id, :status, :cover_letter, :documents, :created_at, :updated_at)
        ON CONFLICT (user_id, program_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, app)
	if err != nil {
		return false, fmt.Errorf("create application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create application: %w", err)
	}
	return n == 1, nil
}

// FindByID fetches an application with program and applicant labels.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	var app models.ApplicationDetail
	if err := r.db.GetContext(ctx, &app, applicationSelect+" WHERE a.id = $1", id); err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByUserAndProgram returns the single application a user holds for a program.
func (r *ApplicationRepository) FindByUserAndProgram(ctx context.Context, userID, programID string) (*models.ApplicationDetail, error) {
	var app models.ApplicationDetail
	if err := r.db.GetContext(ctx, &app, applicationSelect+" WHERE a.user_id = $1 AND a.program_id = $2", userID, programID); err != nil {
		return nil, err
	}
	return &app, nil
}

func buildApplicationFilter(filter models.ApplicationFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("a.user_id = $%d", len(args)+1))
		args = append(args, *filter.UserID)
	}
	if filter.ProgramID != nil {
		conditions = append(conditions, fmt.Sprintf("a.program_id = $%d", len(args)+1))
		args = append(args, *filter.ProgramID)
	}
	if filter.PreceptorID != nil {
		conditions = append(conditions, fmt.Sprintf("p.preceptor_id = $%d", len(args)+1))
		args = append(args, *filter.PreceptorID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of applications, newest first.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	where, args := buildApplicationFilter(filter)
	page, limit := models.NormalizePage(filter.Page, filter.Limit)

	query := fmt.Sprintf("%s %s ORDER BY a.created_at DESC, a.id DESC LIMIT %d OFFSET %d", applicationSelect, where, limit, (page-1)*limit)
	apps := make([]models.ApplicationDetail, 0)
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM applications a JOIN programs p ON p.id = a.program_id " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// ListAll returns every matching application up to max rows, for exports.
func (r *ApplicationRepository) ListAll(ctx context.Context, filter models.ApplicationFilter, max int) ([]models.ApplicationDetail, error) {
	where, args := buildApplicationFilter(filter)
	query := fmt.Sprintf("%s %s ORDER BY a.created_at DESC, a.id DESC LIMIT %d", applicationSelect, where, max)
	apps := make([]models.ApplicationDetail, 0)
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("export applications: %w", err)
	}
	return apps, nil
}

// UpdateApplicantFields lets the applicant edit their submission while it is
// still pending. A nil cover letter or nil documents keeps the stored value.
func (r *ApplicationRepository) UpdateApplicantFields(ctx context.Context, id string, coverLetter *string, documents []string) error {
	var docs interface{}
	if documents != nil {
		docs = pq.StringArray(documents)
	}
	const query = `UPDATE applications SET cover_letter = COALESCE($1, cover_letter),
		documents = COALESCE($2::text[], documents), updated_at = $3
		WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, coverLetter, docs, time.Now().UTC(), id, models.ApplicationPending)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrStaleStatus
	}
	return nil
}

// ApplyReview moves an application from review.From to review.To and, in the
// same transaction, takes or releases a program seat according to SeatDelta.
// Taking a seat is a conditional decrement; if none is left the whole
// transition is rolled back with ErrNoSeats. An empty ReviewerID marks an
// applicant's own change, which leaves the review stamp untouched.
func (r *ApplicationRepository) ApplyReview(ctx context.Context, programID string, review models.ApplicationReview) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	if review.ReviewerID == "" {
		const withdrawQuery = `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
		res, err = tx.ExecContext(ctx, withdrawQuery, review.To, review.ReviewedAt, review.ApplicationID, review.From)
	} else {
		const statusQuery = `UPDATE applications SET status = $1, review_notes = COALESCE($2, review_notes), reviewed_at = $3, reviewed_by = $4, updated_at = $3
        WHERE id = $5 AND status = $6`
		res, err = tx.ExecContext(ctx, statusQuery, review.To, review.Notes, review.ReviewedAt, review.ReviewerID, review.ApplicationID, review.From)
	}
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if n, rerr := res.RowsAffected(); rerr != nil || n == 0 {
		err = ErrStaleStatus
		return err
	}

	switch {
	case review.SeatDelta < 0:
		const takeSeat = `UPDATE programs SET available_seats = available_seats - 1, updated_at = $2 WHERE id = $1 AND available_seats > 0`
		res, err = tx.ExecContext(ctx, takeSeat, programID, review.ReviewedAt)
		if err != nil {
			return fmt.Errorf("take program seat: %w", err)
		}
		if n, rerr := res.RowsAffected(); rerr != nil || n == 0 {
			err = ErrNoSeats
			return err
		}
	case review.SeatDelta > 0:
		const releaseSeat = `UPDATE programs SET available_seats = LEAST(total_seats, available_seats + 1), updated_at = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, releaseSeat, programID, review.ReviewedAt); err != nil {
			return fmt.Errorf("release program seat: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit review: %w", err)
	}
	return nil
}

// CountByStatus aggregates applications per status for a student, a preceptor, or everyone.
func (r *ApplicationRepository) CountByStatus(ctx context.Context, filter models.ApplicationFilter) ([]models.StatusCount, error) {
	where, args := buildApplicationFilter(filter)
	query := "SELECT a.status, COUNT(*) AS count FROM applications a JOIN programs p ON p.id = a.program_id " + where + " GROUP BY a.status ORDER BY a.status"
	counts := make([]models.StatusCount, 0)
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	return counts, nil
}
