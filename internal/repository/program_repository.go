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

const programColumns = `p.id, p.title, p.description, p.specialty_id, p.hospital_name, p.mentor_name, p.preceptor_id,
        p.location, p.country, p.city, p.type, p.start_date, p.duration, p.intake_months, p.total_seats, p.available_seats,
        p.fee, p.currency, p.requirements, p.image_url, p.is_active, p.is_featured, p.created_at, p.updated_at`

// ProgramRepository manages persistence for programs.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// buildProgramFilter turns the filter into a WHERE clause. Every supplied
// predicate is ANDed; absent fields add nothing, so an empty filter yields
// an empty clause and matches every program.
func buildProgramFilter(filter models.ProgramFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	next := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	if filter.SpecialtyID != nil {
		conditions = append(conditions, "p.specialty_id = "+next())
		args = append(args, *filter.SpecialtyID)
	}
	if filter.Location != nil {
		conditions = append(conditions, "LOWER(p.location) LIKE "+next())
		args = append(args, "%"+strings.ToLower(*filter.Location)+"%")
	}
	if filter.Type != nil {
		conditions = append(conditions, "p.type = "+next())
		args = append(args, string(*filter.Type))
	}
	if filter.MinDuration != nil {
		conditions = append(conditions, "p.duration >= "+next())
		args = append(args, *filter.MinDuration)
	}
	if filter.MaxDuration != nil {
		conditions = append(conditions, "p.duration <= "+next())
		args = append(args, *filter.MaxDuration)
	}
	if filter.IsFree != nil {
		if *filter.IsFree {
			conditions = append(conditions, "(p.fee IS NULL OR p.fee = 0)")
		} else {
			conditions = append(conditions, "(p.fee IS NOT NULL AND p.fee > 0)")
		}
	}
	if filter.IsActive != nil {
		conditions = append(conditions, "p.is_active = "+next())
		args = append(args, *filter.IsActive)
	}
	if filter.IsFeatured != nil {
		conditions = append(conditions, "p.is_featured = "+next())
		args = append(args, *filter.IsFeatured)
	}
	if filter.PreceptorID != nil {
		conditions = append(conditions, "p.preceptor_id = "+next())
		args = append(args, *filter.PreceptorID)
	}
	if filter.Search != nil {
		p := next()
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.title) LIKE %s OR LOWER(p.hospital_name) LIKE %s OR LOWER(p.description) LIKE %s)", p, p, p))
		args = append(args, "%"+strings.ToLower(*filter.Search)+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of programs, newest first, plus the total match count.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	where, args := buildProgramFilter(filter)
	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s, s.name AS specialty_name
        FROM programs p LEFT JOIN specialties s ON s.id = p.specialty_id
        %s ORDER BY p.created_at DESC, p.id DESC LIMIT %d OFFSET %d`, programColumns, where, limit, offset)

	programs := make([]models.ProgramDetail, 0)
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := strings.TrimSpace("SELECT COUNT(*) FROM programs p " + where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return programs, total, nil
}

// FindByID fetches a program with its specialty name.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.name AS specialty_name
        FROM programs p LEFT JOIN specialties s ON s.id = p.specialty_id
        WHERE p.id = $1`, programColumns)
	var program models.ProgramDetail
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// Create inserts a new program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now
	if program.IntakeMonths == nil {
		program.IntakeMonths = []string{}
	}
	const query = `INSERT INTO programs (id, title, description, specialty_id, hospital_name, mentor_name, preceptor_id, location, country, city,
        type, start_date, duration, intake_months, total_seats, available_seats, fee, currency, requirements, image_url, is_active, is_featured, created_at, updated_at)
        VALUES (:id, :title, :description, :specialty_id, :hospital_name, :mentor_name, :preceptor_id, :location, :country, :city,
        :type, :start_date, :duration, :intake_months, :total_seats, :available_seats, :fee, :currency, :requirements, :image_url, :is_active, :is_featured, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update writes every mutable column. The write only lands if available_seats
// still equals expectedSeats, so an edit cannot clobber a concurrent accept;
// sql.ErrNoRows signals that race (or a missing row) to the caller.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program, expectedSeats int) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programs SET title = $1, description = $2, specialty_id = $3, hospital_name = $4, mentor_name = $5,
        location = $6, country = $7, city = $8, type = $9, start_date = $10, duration = $11, intake_months = $12,
        total_seats = $13, available_seats = $14, fee = $15, currency = $16, requirements = $17, image_url = $18,
        is_active = $19, is_featured = $20, preceptor_id = $21, updated_at = $22
        WHERE id = $23 AND available_seats = $24`
	res, err := r.db.ExecContext(ctx, query,
		program.Title, program.Description, program.SpecialtyID, program.HospitalName, program.MentorName,
		program.Location, program.Country, program.City, program.Type, program.StartDate, program.Duration, program.IntakeMonths,
		program.TotalSeats, program.AvailableSeats, program.Fee, program.Currency, program.Requirements, program.ImageURL,
		program.IsActive, program.IsFeatured, program.PreceptorID, program.UpdatedAt,
		program.ID, expectedSeats)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a program; applications, favorites and waitlist rows cascade.
func (r *ProgramRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SeatUsageByPreceptor summarises each program a preceptor owns.
func (r *ProgramRepository) SeatUsageByPreceptor(ctx context.Context, preceptorID string) ([]models.ProgramSeatUsage, error) {
	const query = `SELECT p.id AS program_id, p.title, p.total_seats, p.available_seats,
        COUNT(a.id) FILTER (WHERE a.status = 'pending') AS pending
        FROM programs p LEFT JOIN applications a ON a.program_id = p.id
        WHERE p.preceptor_id = $1
        GROUP BY p.id ORDER BY p.created_at DESC`
	usage := make([]models.ProgramSeatUsage, 0)
	if err := r.db.SelectContext(ctx, &usage, query, preceptorID); err != nil {
		return nil, fmt.Errorf("program seat usage: %w", err)
	}
	return usage, nil
}

// Count returns the number of programs, optionally only active ones.
func (r *ProgramRepository) Count(ctx context.Context, activeOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM programs`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return total, nil
}
