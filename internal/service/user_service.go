package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateRole(ctx context.Context, id string, isAdmin bool, role *models.AdminRole, permissions []string) error
}

// UserService handles user administration.
type UserService struct {
	repo      userRepository
	audit     auditRecorder
	perms     *authz.Table
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditRecorder, perms *authz.Table, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &UserService{repo: repo, audit: audit, perms: perms, validator: validate, logger: logger}
}

// List returns users with pagination metadata.
func (s *UserService) List(ctx context.Context, actor *models.User, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if err := s.authorize(actor); err != nil {
		return nil, nil, err
	}
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to fetch user")
	}
	return user, nil
}

// UpdateRole grants or revokes admin rights. Non-admins never keep a role or
// permissions; admins need either a known role or a list of known
// capabilities. Actors cannot change their own role.
func (s *UserService) UpdateRole(ctx context.Context, actor *models.User, id string, req dto.UpdateRoleRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if actor.ID == id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change your own role")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid role payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to fetch user")
	}

	var role *models.AdminRole
	var permissions []string
	if req.IsAdmin {
		if req.AdminRole != nil {
			r := models.AdminRole(*req.AdminRole)
			role = &r
		}
		for _, p := range req.Permissions {
			if !authz.Known(authz.Capability(p)) {
				return nil, appErrors.Invalid("adminPermissions", "oneof", fmt.Sprintf("unknown capability %q", p))
			}
			permissions = append(permissions, p)
		}
		if role == nil && len(permissions) == 0 {
			return nil, appErrors.Invalid("adminRole", "required_without", "admins need a role or explicit permissions")
		}
	}

	if err := s.repo.UpdateRole(ctx, id, req.IsAdmin, role, permissions); err != nil {
		return nil, notFoundOr(err, "user not found", "failed to update user role")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to fetch user")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUserRoleUpdate, "user", id,
		map[string]interface{}{"isAdmin": existing.IsAdmin, "adminRole": existing.AdminRole, "adminPermissions": existing.AdminPermissions},
		map[string]interface{}{"isAdmin": updated.IsAdmin, "adminRole": updated.AdminRole, "adminPermissions": updated.AdminPermissions},
		meta)
	s.logger.Info("user role updated", zap.String("user_id", id), zap.Bool("is_admin", req.IsAdmin), zap.String("actor_id", actor.ID))
	return updated, nil
}

func (s *UserService) authorize(actor *models.User) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !s.perms.HasPermission(actor, authz.ManageUsers) {
		return appErrors.Clone(appErrors.ErrForbidden, "missing capability manage_users")
	}
	return nil
}
