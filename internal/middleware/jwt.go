package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/logger"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// ContextUserKey is the gin context key storing the resolved *models.User.
const ContextUserKey = "currentUser"

// IdentityResolver validates bearer tokens and maps them to local users.
type IdentityResolver interface {
	ValidateToken(token string) (*models.IdentityClaims, error)
	Resolve(ctx context.Context, claims *models.IdentityClaims) (*models.User, error)
}

// JWT protects routes by requiring a valid identity token.
func JWT(identity IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			return
		}
		if err := authenticate(c, identity, token); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// OptionalJWT attaches the user when a valid token is present but never blocks.
func OptionalJWT(identity IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := bearerToken(c.GetHeader("Authorization")); err == nil {
			_ = authenticate(c, identity, token)
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

func authenticate(c *gin.Context, identity IdentityResolver, token string) error {
	claims, err := identity.ValidateToken(token)
	if err != nil {
		return err
	}
	user, err := identity.Resolve(c.Request.Context(), claims)
	if err != nil {
		return err
	}
	c.Set(ContextUserKey, user)
	c.Set(logger.UserIDKey, user.ID)
	return nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "missing bearer token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
