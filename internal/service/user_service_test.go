package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type mockUserRepo struct {
	users map[string]*models.User
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, isAdmin bool, role *models.AdminRole, permissions []string) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.IsAdmin = isAdmin
	user.AdminRole = role
	user.AdminPermissions = pq.StringArray(permissions)
	return nil
}

func newUserFixture() (*UserService, *mockUserRepo, *auditStub) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"admin-1": superAdmin(),
		"user-2":  {ID: "user-2", UserType: models.UserTypeStudent},
	}}
	audit := &auditStub{}
	return NewUserService(repo, audit, nil, nil, zap.NewNop()), repo, audit
}

func TestUserServiceUpdateRolePromotes(t *testing.T) {
	svc, _, audit := newUserFixture()
	role := "regular_admin"

	user, err := svc.UpdateRole(context.Background(), superAdmin(), "user-2", dto.UpdateRoleRequest{IsAdmin: true, AdminRole: &role}, models.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, models.AdminRoleRegular, user.Role())
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionUserRoleUpdate, audit.entries[0].Action)
}

func TestUserServiceUpdateRoleValidation(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.UpdateRole(context.Background(), superAdmin(), "user-2", dto.UpdateRoleRequest{IsAdmin: true}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateRole(context.Background(), superAdmin(), "user-2", dto.UpdateRoleRequest{IsAdmin: true, Permissions: []string{"launch_rockets"}}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	bogus := "janitor"
	_, err = svc.UpdateRole(context.Background(), superAdmin(), "user-2", dto.UpdateRoleRequest{IsAdmin: true, AdminRole: &bogus}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	user, err := svc.UpdateRole(context.Background(), superAdmin(), "user-2", dto.UpdateRoleRequest{IsAdmin: true, Permissions: []string{"view_analytics"}}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Nil(t, user.AdminRole)
	assert.Equal(t, []string{"view_analytics"}, []string(user.AdminPermissions))
}

func TestUserServiceRequiresManageUsers(t *testing.T) {
	svc, _, _ := newUserFixture()
	regular := models.AdminRoleRegular
	actor := &models.User{ID: "admin-2", IsAdmin: true, AdminRole: &regular}

	_, _, err := svc.List(context.Background(), actor, models.UserFilter{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), nil, models.UserFilter{})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateRole(context.Background(), superAdmin(), "admin-1", dto.UpdateRoleRequest{}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
