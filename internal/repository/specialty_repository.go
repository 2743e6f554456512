package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medrotation-api/internal/models"
)

// SpecialtyRepository manages medical specialties.
type SpecialtyRepository struct {
	db *sqlx.DB
}

// NewSpecialtyRepository constructs a SpecialtyRepository.
func NewSpecialtyRepository(db *sqlx.DB) *SpecialtyRepository {
	return &SpecialtyRepository{db: db}
}

// List returns every specialty ordered by name.
func (r *SpecialtyRepository) List(ctx context.Context) ([]models.Specialty, error) {
	specialties := make([]models.Specialty, 0)
	const query = `SELECT id, name, description, icon, created_at FROM specialties ORDER BY name`
	if err := r.db.SelectContext(ctx, &specialties, query); err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	return specialties, nil
}

// FindByID fetches a specialty.
func (r *SpecialtyRepository) FindByID(ctx context.Context, id string) (*models.Specialty, error) {
	var specialty models.Specialty
	const query = `SELECT id, name, description, icon, created_at FROM specialties WHERE id = $1`
	if err := r.db.GetContext(ctx, &specialty, query, id); err != nil {
		return nil, err
	}
	return &specialty, nil
}

// Create inserts a specialty.
func (r *SpecialtyRepository) Create(ctx context.Context, specialty *models.Specialty) error {
	if specialty.ID == "" {
		specialty.ID = uuid.NewString()
	}
	specialty.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO specialties (id, name, description, icon, created_at) VALUES (:id, :name, :description, :icon, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, specialty); err != nil {
		return fmt.Errorf("create specialty: %w", err)
	}
	return nil
}

// Update rewrites a specialty's mutable fields.
func (r *SpecialtyRepository) Update(ctx context.Context, specialty *models.Specialty) error {
	const query = `UPDATE specialties SET name = :name, description = :description, icon = :icon WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, specialty)
	if err != nil {
		return fmt.Errorf("update specialty: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a specialty; programs referencing it keep a null specialty.
func (r *SpecialtyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM specialties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete specialty: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
