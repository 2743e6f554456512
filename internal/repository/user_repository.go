package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/medrotation-api/internal/models"
)

const userColumns = `id, email, first_name, last_name, profile_image_url, user_type, is_admin, admin_role, admin_permissions, created_at, updated_at`

// UserRepository provides database access for users provisioned from the identity provider.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpsertProfile provisions a user on first sight and refreshes the profile
// fields the identity provider owns on later logins. Admin flags are never
// touched here.
func (r *UserRepository) UpsertProfile(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if user.UserType == "" {
		user.UserType = models.UserTypeStudent
	}
	query := `INSERT INTO users (id, email, first_name, last_name, profile_image_url, user_type, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
        ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, first_name = EXCLUDED.first_name,
        last_name = EXCLUDED.last_name, profile_image_url = COALESCE(EXCLUDED.profile_image_url, users.profile_image_url),
        updated_at = EXCLUDED.updated_at
        RETURNING ` + userColumns
	var stored models.User
	if err := r.db.GetContext(ctx, &stored, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.ProfileImageURL, user.UserType, now); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &stored, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserType != nil {
		conditions = append(conditions, fmt.Sprintf("user_type = $%d", len(args)+1))
		args = append(args, *filter.UserType)
	}
	if filter.IsAdmin != nil {
		conditions = append(conditions, fmt.Sprintf("is_admin = $%d", len(args)+1))
		args = append(args, *filter.IsAdmin)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(first_name || ' ' || last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", userColumns, baseQuery, limit, (page-1)*limit)

	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// UpdateRole sets the admin flag, role and custom permission list of a user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, isAdmin bool, role *models.AdminRole, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}
	const query = `UPDATE users SET is_admin = $1, admin_role = $2, admin_permissions = $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, isAdmin, role, pq.StringArray(permissions), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByType counts users per user_type.
func (r *UserRepository) CountByType(ctx context.Context) (map[models.UserType]int, error) {
	var rows []struct {
		UserType models.UserType `db:"user_type"`
		Count    int             `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT user_type, COUNT(*) AS count FROM users GROUP BY user_type`); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	counts := make(map[models.UserType]int, len(rows))
	for _, row := range rows {
		counts[row.UserType] = row.Count
	}
	return counts, nil
}
