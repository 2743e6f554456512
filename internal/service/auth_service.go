package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type identityRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpsertProfile(ctx context.Context, user *models.User) (*models.User, error)
}

// AuthConfig describes how identity provider tokens are verified.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Identity is the body of GET /auth/me.
type Identity struct {
	User         *models.User       `json:"user"`
	Capabilities []authz.Capability `json:"capabilities"`
}

// AuthService verifies tokens issued by the external identity provider and
// maps them onto local users. It never issues tokens itself.
type AuthService struct {
	repo   identityRepository
	perms  *authz.Table
	logger *zap.Logger
	config AuthConfig
	parser *jwt.Parser
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo identityRepository, perms *authz.Table, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	return &AuthService{repo: repo, perms: perms, logger: logger, config: config, parser: jwt.NewParser(opts...)}
}

// ValidateToken parses and validates an identity token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.IdentityClaims, error) {
	claims := &models.IdentityClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		message := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			message = "token expired"
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, message)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Resolve returns the local user for verified claims, provisioning or
// refreshing the profile from the token.
func (s *AuthService) Resolve(ctx context.Context, claims *models.IdentityClaims) (*models.User, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	profile := &models.User{
		ID:        claims.Subject,
		Email:     strings.ToLower(strings.TrimSpace(claims.Email)),
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		UserType:  claims.UserType,
	}
	if claims.Picture != "" {
		profile.ProfileImageURL = &claims.Picture
	}
	if profile.UserType != models.UserTypePreceptor {
		profile.UserType = models.UserTypeStudent
	}

	if profile.Email == "" {
		user, err := s.repo.FindByID(ctx, claims.Subject)
		if err != nil {
			return nil, notFoundOr(err, "unknown user", "failed to load user")
		}
		return user, nil
	}
	user, err := s.repo.UpsertProfile(ctx, profile)
	if err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("email %s belongs to another account", profile.Email))
		}
		return nil, internalErr(err, "failed to provision user")
	}
	return user, nil
}

// Me describes the current user with their granted capabilities.
func (s *AuthService) Me(user *models.User) (*Identity, error) {
	if user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return &Identity{User: user, Capabilities: s.perms.Capabilities(user)}, nil
}
