package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

const catalogCachePrefix = "catalog:programs:"

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ProgramDetail, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program, expectedSeats int) error
	Delete(ctx context.Context, id string) error
}

type auditRecorder interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// ProgramService implements the program catalog and its mutations.
type ProgramService struct {
	repo      programRepository
	audit     auditRecorder
	cache     *CacheService
	perms     *authz.Table
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs a ProgramService.
func NewProgramService(repo programRepository, audit auditRecorder, cache *CacheService, perms *authz.Table, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &ProgramService{repo: repo, audit: audit, cache: cache, perms: perms, validator: validate, logger: logger}
}

// List returns one catalog page. The boolean reports a cache hit.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) (*dto.ProgramList, *models.Pagination, bool, error) {
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	if filter.MinDuration != nil && filter.MaxDuration != nil && *filter.MinDuration > *filter.MaxDuration {
		return nil, nil, false, appErrors.Invalid("minDuration", "ltefield", "must not exceed maxDuration")
	}

	key := cacheKey(catalogCachePrefix, filter)
	var cached dto.ProgramList
	if s.cache.Get(ctx, key, &cached) {
		return &cached, models.NewPagination(filter.Page, filter.Limit, cached.TotalCount), true, nil
	}

	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, internalErr(err, "failed to list programs")
	}
	pagination := models.NewPagination(filter.Page, filter.Limit, total)
	list := &dto.ProgramList{Programs: programs, TotalCount: total, HasMore: pagination.HasMore}
	s.cache.Set(ctx, key, list, 0)
	return list, pagination, false, nil
}

// Featured lists active featured programs.
func (s *ProgramService) Featured(ctx context.Context, limit int) ([]models.ProgramDetail, error) {
	active, featured := true, true
	list, _, _, err := s.List(ctx, models.ProgramFilter{IsActive: &active, IsFeatured: &featured, Page: 1, Limit: limit})
	if err != nil {
		return nil, err
	}
	return list.Programs, nil
}

// Get fetches one program.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.ProgramDetail, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	return program, nil
}

// CanManage reports whether actor may edit program: either through the
// modify_programs capability or as its owning preceptor.
func (s *ProgramService) CanManage(actor *models.User, program *models.Program) bool {
	if s.perms.HasPermission(actor, authz.ModifyPrograms) {
		return true
	}
	return actor.IsPreceptor() && program.PreceptorID != nil && *program.PreceptorID == actor.ID
}

// Create adds a program. Admins need create_programs; preceptors may create
// programs they own.
func (s *ProgramService) Create(ctx context.Context, actor *models.User, req dto.ProgramRequest, meta models.RequestMeta) (*models.Program, error) {
	canCreate := s.perms.HasPermission(actor, authz.CreatePrograms)
	if !canCreate && !actor.IsPreceptor() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "missing capability create_programs")
	}
	program, err := s.buildProgram(req, nil)
	if err != nil {
		return nil, err
	}
	if !canCreate {
		program.PreceptorID = &actor.ID
	}

	if err := s.repo.Create(ctx, program); err != nil {
		if appErrors.IsForeignKeyViolation(err) {
			return nil, appErrors.Invalid("specialtyId", "exists", "references an unknown specialty or preceptor")
		}
		return nil, internalErr(err, "failed to create program")
	}
	s.cache.Invalidate(ctx, catalogCachePrefix+"*")
	s.record(ctx, actor, models.AuditActionProgramCreate, program.ID, nil, program, meta)
	s.logger.Info("program created", zap.String("program_id", program.ID), zap.String("actor_id", actor.ID))
	return program, nil
}

// Update replaces a program's fields. availableSeats may be omitted to keep
// the current count; the write fails with a conflict if an application
// changed the seat count in between.
func (s *ProgramService) Update(ctx context.Context, actor *models.User, id string, req dto.ProgramRequest, meta models.RequestMeta) (*models.Program, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	if !s.CanManage(actor, &existing.Program) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify this program")
	}
	program, err := s.buildProgram(req, &existing.Program)
	if err != nil {
		return nil, err
	}
	// Only modify_programs holders may reassign the owning preceptor.
	if req.PreceptorID == nil || !s.perms.HasPermission(actor, authz.ModifyPrograms) {
		program.PreceptorID = existing.PreceptorID
	}

	if err := s.repo.Update(ctx, program, existing.AvailableSeats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "program seats changed concurrently, retry the update")
		}
		if appErrors.IsForeignKeyViolation(err) {
			return nil, appErrors.Invalid("specialtyId", "exists", "references an unknown specialty or preceptor")
		}
		return nil, internalErr(err, "failed to update program")
	}
	s.cache.Invalidate(ctx, catalogCachePrefix+"*")
	s.record(ctx, actor, models.AuditActionProgramUpdate, id, existing.Program, program, meta)
	return program, nil
}

// Delete removes a program. Requires delete_programs.
func (s *ProgramService) Delete(ctx context.Context, actor *models.User, id string, meta models.RequestMeta) error {
	if !s.perms.HasPermission(actor, authz.DeletePrograms) {
		return appErrors.Clone(appErrors.ErrForbidden, "missing capability delete_programs")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "program not found", "failed to delete program")
	}
	s.cache.Invalidate(ctx, catalogCachePrefix+"*")
	s.record(ctx, actor, models.AuditActionProgramDelete, id, nil, nil, meta)
	return nil
}

// buildProgram validates req and maps it onto a program. For updates the
// current row supplies identity and, when omitted, the seat count.
func (s *ProgramService) buildProgram(req dto.ProgramRequest, current *models.Program) (*models.Program, error) {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid program payload")
	}
	startDate, err := dto.ParseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}

	available := req.TotalSeats
	switch {
	case req.AvailableSeats != nil:
		available = *req.AvailableSeats
	case current != nil:
		available = current.AvailableSeats
		if available > req.TotalSeats {
			available = req.TotalSeats
		}
	}
	if available > req.TotalSeats {
		return nil, appErrors.Invalid("availableSeats", "ltefield", "must not exceed totalSeats")
	}

	program := &models.Program{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		SpecialtyID:    req.SpecialtyID,
		HospitalName:   strings.TrimSpace(req.HospitalName),
		MentorName:     req.MentorName,
		PreceptorID:    req.PreceptorID,
		Location:       strings.TrimSpace(req.Location),
		Country:        req.Country,
		City:           req.City,
		Type:           models.ProgramType(req.Type),
		StartDate:      startDate,
		Duration:       req.Duration,
		IntakeMonths:   req.IntakeMonths,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: available,
		Fee:            req.Fee,
		Currency:       strings.ToUpper(req.Currency),
		Requirements:   req.Requirements,
		ImageURL:       req.ImageURL,
		IsActive:       true,
		IsFeatured:     req.IsFeatured,
	}
	if program.Currency == "" {
		program.Currency = "USD"
	}
	if req.IsActive != nil {
		program.IsActive = *req.IsActive
	}
	if current != nil {
		program.ID = current.ID
		program.CreatedAt = current.CreatedAt
	}
	return program, nil
}

func (s *ProgramService) record(ctx context.Context, actor *models.User, action, id string, before, after interface{}, meta models.RequestMeta) {
	recordAudit(ctx, s.audit, s.logger, actor, action, "program", id, before, after, meta)
}

// recordAudit writes an audit row; failures are logged and swallowed.
func recordAudit(ctx context.Context, audit auditRecorder, logger *zap.Logger, actor *models.User, action, resource, id string, before, after interface{}, meta models.RequestMeta) {
	if audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &id,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		CreatedAt:  time.Now().UTC(),
	}
	if actor != nil {
		entry.UserID = &actor.ID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := audit.Create(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", id), zap.Error(err))
	}
}
