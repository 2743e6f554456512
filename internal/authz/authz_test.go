package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medrotation-api/internal/models"
)

func admin(role models.AdminRole, perms ...string) *models.User {
	u := &models.User{ID: "u-admin", IsAdmin: true, AdminPermissions: pq.StringArray(perms)}
	if role != "" {
		u.AdminRole = &role
	}
	return u
}

func TestNonAdminsHaveNoCapabilities(t *testing.T) {
	table := DefaultTable()
	superRole := models.AdminRoleSuper
	users := []*models.User{
		nil,
		{ID: "student", UserType: models.UserTypeStudent},
		{ID: "preceptor", UserType: models.UserTypePreceptor},
		// a role without the admin flag is ignored
		{ID: "flagless", AdminRole: &superRole, AdminPermissions: pq.StringArray{"create_programs"}},
	}
	for _, u := range users {
		for _, c := range All {
			assert.False(t, table.HasPermission(u, c), "user %v capability %s", u, c)
		}
	}
}

func TestSuperAdminHasEverything(t *testing.T) {
	table := DefaultTable()
	for _, c := range All {
		assert.True(t, table.HasPermission(admin(models.AdminRoleSuper), c), c)
	}
}

func TestRegularAdminSubset(t *testing.T) {
	table := DefaultTable()
	u := admin(models.AdminRoleRegular)

	assert.True(t, table.HasPermission(u, CreatePrograms))
	assert.True(t, table.HasPermission(u, ReviewApplications))
	assert.True(t, table.HasPermission(u, ManageContent))
	assert.False(t, table.HasPermission(u, ModifyPrograms))
	assert.False(t, table.HasPermission(u, DeletePrograms))
	assert.False(t, table.HasPermission(u, ManageUsers))
	assert.False(t, table.HasPermission(u, ManagePaymentGateway))
}

func TestUnrecognisedRoleFallsBackToCustomPermissions(t *testing.T) {
	table := DefaultTable()

	custom := admin("", "view_applications", "not_a_capability")
	assert.True(t, table.HasPermission(custom, ViewApplications))
	assert.False(t, table.HasPermission(custom, CreatePrograms))
	assert.False(t, table.HasPermission(custom, Capability("not_a_capability")))

	bare := admin("")
	for _, c := range All {
		assert.False(t, table.HasPermission(bare, c), c)
	}
}

func TestUnknownCapabilityDenied(t *testing.T) {
	assert.False(t, DefaultTable().HasPermission(admin(models.AdminRoleSuper), Capability("launch_rockets")))
}

func TestLoadTableFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	doc := "roles:\n  super_admin: [create_programs, modify_programs]\n  regular_admin: [view_applications]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.True(t, table.HasPermission(admin(models.AdminRoleSuper), ModifyPrograms))
	assert.False(t, table.HasPermission(admin(models.AdminRoleSuper), ManageUsers))
	assert.Equal(t, []Capability{ViewApplications}, table.Capabilities(admin(models.AdminRoleRegular)))
}

func TestLoadTableRejectsUnknownNames(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("roles:\n  owner: [create_programs]\n"), 0o600))
	_, err := LoadTable(bad)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(bad, []byte("roles:\n  super_admin: [fly]\n"), 0o600))
	_, err = LoadTable(bad)
	assert.Error(t, err)
}
