package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

const permissionsKey = "permissions"

// WithPermissions exposes the capability table to RequireCapability and handlers.
func WithPermissions(perms *authz.Table) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(permissionsKey, perms)
		c.Next()
	}
}

// Permissions returns the table installed by WithPermissions, or the
// built-in one.
func Permissions(c *gin.Context) *authz.Table {
	if value, ok := c.Get(permissionsKey); ok {
		if perms, ok := value.(*authz.Table); ok && perms != nil {
			return perms
		}
	}
	return authz.DefaultTable()
}

// RequireCapability lets the request through when the current user holds
// at least one of caps. Anonymous callers get 401, others 403.
func RequireCapability(caps ...authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms := Permissions(c)
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		for _, capability := range caps {
			if perms.HasPermission(user, capability) {
				c.Next()
				return
			}
		}
		message := "forbidden"
		if len(caps) > 0 {
			message = "missing capability " + string(caps[0])
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, message))
	}
}

// RequireUserType restricts a route to the given account kinds. Admins always pass.
func RequireUserType(types ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if user.IsAdmin {
			c.Next()
			return
		}
		for _, t := range types {
			if user.UserType == t {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not available for this account type"))
	}
}
