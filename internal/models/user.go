package models

import (
	"time"

	"github.com/lib/pq"
)

// UserType separates the two non-admin audiences of the marketplace.
type UserType string

const (
	UserTypeStudent   UserType = "student"
	UserTypePreceptor UserType = "preceptor"
)

// AdminRole is only meaningful when User.IsAdmin is true.
type AdminRole string

const (
	AdminRoleSuper   AdminRole = "super_admin"
	AdminRoleRegular AdminRole = "regular_admin"
)

// User is an identity provisioned from the external identity provider.
type User struct {
	ID               string         `db:"id" json:"id"`
	Email            string         `db:"email" json:"email"`
	FirstName        string         `db:"first_name" json:"firstName"`
	LastName         string         `db:"last_name" json:"lastName"`
	ProfileImageURL  *string        `db:"profile_image_url" json:"profileImageUrl,omitempty"`
	UserType         UserType       `db:"user_type" json:"userType"`
	IsAdmin          bool           `db:"is_admin" json:"isAdmin"`
	AdminRole        *AdminRole     `db:"admin_role" json:"adminRole,omitempty"`
	AdminPermissions pq.StringArray `db:"admin_permissions" json:"adminPermissions,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsPreceptor reports whether the user owns programs.
func (u *User) IsPreceptor() bool {
	return u != nil && u.UserType == UserTypePreceptor
}

// Role returns the admin role, or "" for non-admins and admins without one.
func (u *User) Role() AdminRole {
	if u == nil || !u.IsAdmin || u.AdminRole == nil {
		return ""
	}
	return *u.AdminRole
}

// UserFilter captures filtering criteria for the admin user listing.
type UserFilter struct {
	UserType *UserType
	IsAdmin  *bool
	Search   string
	Page     int
	Limit    int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"totalCount"`
	HasMore    bool `json:"hasMore"`
}

// NewPagination computes HasMore from the total rather than the page length,
// so an exactly full last page is not reported as having more.
func NewPagination(page, limit, total int) *Pagination {
	return &Pagination{Page: page, Limit: limit, TotalCount: total, HasMore: page*limit < total}
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 10000
)

// NormalizePage applies the listing defaults: page runs from 1 to MaxPage
// and limit falls back to DefaultPageSize when unset or above MaxPageSize.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	return page, limit
}
