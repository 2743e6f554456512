package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medrotation-api/internal/models"
)

var userRowColumns = []string{"id", "email", "first_name", "last_name", "profile_image_url", "user_type", "is_admin",
	"admin_role", "admin_permissions", "created_at", "updated_at"}

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("user-1", "sam@example.com", "Sam", "Lee", nil, "student", true, "regular_admin", "{view_analytics}", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 LIMIT 1")).WithArgs("user-1").WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", user.Email)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, models.AdminRoleRegular, user.Role())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	preceptor := models.UserTypePreceptor
	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("user-2", "kim@example.com", "Kim", "Park", nil, "preceptor", false, nil, "{}", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE 1=1 AND user_type = $1 AND (LOWER(email) LIKE $2")).
		WithArgs(preceptor, "%kim%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND user_type = $1")).
		WithArgs(preceptor, "%kim%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{UserType: &preceptor, Search: "Kim", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, models.UserTypePreceptor, users[0].UserType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateRoleMissingUser(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_admin = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateRole(context.Background(), "ghost", false, nil, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryCountByType(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_type, COUNT(*) AS count FROM users GROUP BY user_type")).
		WillReturnRows(sqlmock.NewRows([]string{"user_type", "count"}).AddRow("student", 40).AddRow("preceptor", 6))

	counts, err := repo.CountByType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, counts[models.UserTypeStudent])
	assert.Equal(t, 6, counts[models.UserTypePreceptor])
}
