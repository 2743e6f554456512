package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type specialtyRepository interface {
	List(ctx context.Context) ([]models.Specialty, error)
	FindByID(ctx context.Context, id string) (*models.Specialty, error)
	Create(ctx context.Context, specialty *models.Specialty) error
	Update(ctx context.Context, specialty *models.Specialty) error
	Delete(ctx context.Context, id string) error
}

// SpecialtyService manages the specialty taxonomy.
type SpecialtyService struct {
	repo      specialtyRepository
	cache     *CacheService
	perms     *authz.Table
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSpecialtyService constructs a SpecialtyService.
func NewSpecialtyService(repo specialtyRepository, cache *CacheService, perms *authz.Table, validate *validator.Validate, logger *zap.Logger) *SpecialtyService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &SpecialtyService{repo: repo, cache: cache, perms: perms, validator: validate, logger: logger}
}

// List returns all specialties ordered by name.
func (s *SpecialtyService) List(ctx context.Context) ([]models.Specialty, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalErr(err, "failed to list specialties")
	}
	if items == nil {
		items = []models.Specialty{}
	}
	return items, nil
}

// Create adds a specialty.
func (s *SpecialtyService) Create(ctx context.Context, actor *models.User, req dto.SpecialtyRequest) (*models.Specialty, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	specialty, err := s.build(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, specialty); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "specialty name already exists")
		}
		return nil, internalErr(err, "failed to create specialty")
	}
	return specialty, nil
}

// Update renames or re-describes a specialty.
func (s *SpecialtyService) Update(ctx context.Context, actor *models.User, id string, req dto.SpecialtyRequest) (*models.Specialty, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	specialty, err := s.build(req)
	if err != nil {
		return nil, err
	}
	specialty.ID = id
	if err := s.repo.Update(ctx, specialty); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "specialty name already exists")
		}
		return nil, notFoundOr(err, "specialty not found", "failed to update specialty")
	}
	s.cache.Invalidate(ctx, catalogCachePrefix+"*")
	return s.get(ctx, id)
}

// Delete removes a specialty.
func (s *SpecialtyService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "specialty not found", "failed to delete specialty")
	}
	s.cache.Invalidate(ctx, catalogCachePrefix+"*")
	return nil
}

func (s *SpecialtyService) get(ctx context.Context, id string) (*models.Specialty, error) {
	specialty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "specialty not found", "failed to load specialty")
	}
	return specialty, nil
}

func (s *SpecialtyService) authorize(actor *models.User) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !s.perms.HasPermission(actor, authz.ManageSpecialties) {
		return appErrors.Clone(appErrors.ErrForbidden, "missing capability manage_specialties")
	}
	return nil
}

func (s *SpecialtyService) build(req dto.SpecialtyRequest) (*models.Specialty, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid specialty payload")
	}
	return &models.Specialty{Name: req.Name, Description: req.Description, Icon: req.Icon}, nil
}
