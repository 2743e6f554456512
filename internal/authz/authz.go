// Package authz maps admin roles to capabilities. A Table is built once at
// startup and never mutated, so it can be shared across requests freely.
package authz

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/medrotation-api/internal/models"
)

// Capability is a named permission checked before a privileged action.
type Capability string

const (
	CreatePrograms       Capability = "create_programs"
	ModifyPrograms       Capability = "modify_programs"
	DeletePrograms       Capability = "delete_programs"
	ViewApplications     Capability = "view_applications"
	ReviewApplications   Capability = "review_applications"
	ManageUsers          Capability = "manage_users"
	ManagePaymentGateway Capability = "manage_payment_gateway"
	ManageContent        Capability = "manage_content"
	ModerateReviews      Capability = "moderate_reviews"
	ManageSpecialties    Capability = "manage_specialties"
	ViewAnalytics        Capability = "view_analytics"
	ExportData           Capability = "export_data"
)

// All lists every capability the service knows about.
var All = []Capability{
	CreatePrograms,
	ModifyPrograms,
	DeletePrograms,
	ViewApplications,
	ReviewApplications,
	ManageUsers,
	ManagePaymentGateway,
	ManageContent,
	ModerateReviews,
	ManageSpecialties,
	ViewAnalytics,
	ExportData,
}

// Known reports whether c is one of All.
func Known(c Capability) bool {
	for _, k := range All {
		if k == c {
			return true
		}
	}
	return false
}

type capSet map[Capability]struct{}

// Table is an immutable role → capability mapping.
type Table struct {
	roles map[models.AdminRole]capSet
}

// NewTable validates and copies grants. Unknown roles or capabilities are rejected.
func NewTable(grants map[models.AdminRole][]Capability) (*Table, error) {
	t := &Table{roles: make(map[models.AdminRole]capSet, len(grants))}
	for role, caps := range grants {
		if role != models.AdminRoleSuper && role != models.AdminRoleRegular {
			return nil, fmt.Errorf("unknown admin role %q", role)
		}
		set := make(capSet, len(caps))
		for _, c := range caps {
			if !Known(c) {
				return nil, fmt.Errorf("role %s: unknown capability %q", role, c)
			}
			set[c] = struct{}{}
		}
		t.roles[role] = set
	}
	return t, nil
}

// DefaultTable grants super admins everything. Regular admins cannot modify
// or delete programs, manage users, or touch the payment gateway.
func DefaultTable() *Table {
	regular := make([]Capability, 0, len(All))
	for _, c := range All {
		switch c {
		case ModifyPrograms, DeletePrograms, ManageUsers, ManagePaymentGateway:
			continue
		}
		regular = append(regular, c)
	}
	t, err := NewTable(map[models.AdminRole][]Capability{
		models.AdminRoleSuper:   All,
		models.AdminRoleRegular: regular,
	})
	if err != nil {
		panic(err)
	}
	return t
}

type fileSchema struct {
	Roles map[models.AdminRole][]Capability `yaml:"roles"`
}

// LoadTable reads a YAML document of the form
//
//	roles:
//	  super_admin: [create_programs, ...]
//	  regular_admin: [create_programs, ...]
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions file: %w", err)
	}
	var doc fileSchema
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse permissions file: %w", err)
	}
	if len(doc.Roles) == 0 {
		return nil, fmt.Errorf("permissions file %s defines no roles", path)
	}
	return NewTable(doc.Roles)
}

// HasPermission answers whether user may exercise c. A nil user and a
// non-admin user are both denied. An admin without a recognised role falls
// back to their explicit adminPermissions list; with none, everything is denied.
func (t *Table) HasPermission(user *models.User, c Capability) bool {
	if t == nil || user == nil || !user.IsAdmin || !Known(c) {
		return false
	}
	if set, ok := t.roles[user.Role()]; ok {
		_, granted := set[c]
		return granted
	}
	for _, p := range user.AdminPermissions {
		if Capability(p) == c {
			return true
		}
	}
	return false
}

// Capabilities lists what user is granted, sorted by name.
func (t *Table) Capabilities(user *models.User) []Capability {
	out := make([]Capability, 0, len(All))
	for _, c := range All {
		if t.HasPermission(user, c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
