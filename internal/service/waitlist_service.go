package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type waitlistRepository interface {
	Join(ctx context.Context, userID, programID string) (*models.WaitlistEntry, error)
	Leave(ctx context.Context, userID, programID string) error
	ListByUser(ctx context.Context, userID string) ([]models.WaitlistDetail, error)
	ListByProgram(ctx context.Context, programID string) ([]models.WaitlistDetail, error)
}

// WaitlistService queues users for full programs.
type WaitlistService struct {
	repo      waitlistRepository
	programs  programLookup
	perms     *authz.Table
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWaitlistService constructs a WaitlistService.
func NewWaitlistService(repo waitlistRepository, programs programLookup, perms *authz.Table, validate *validator.Validate, logger *zap.Logger) *WaitlistService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &WaitlistService{repo: repo, programs: programs, perms: perms, validator: validate, logger: logger}
}

// Join places actor at the end of a program's waitlist. Joining again
// returns the existing entry.
func (s *WaitlistService) Join(ctx context.Context, actor *models.User, req dto.JoinWaitlistRequest) (*models.WaitlistEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid waitlist payload")
	}
	entry, err := s.repo.Join(ctx, actor.ID, req.ProgramID)
	if err != nil {
		return nil, notFoundOr(err, "program not found", "failed to join waitlist")
	}
	s.logger.Info("waitlist joined", zap.String("program_id", req.ProgramID), zap.String("user_id", actor.ID), zap.Int("position", entry.Position))
	return entry, nil
}

// Leave removes actor from a program's waitlist. The freed position is not reused.
func (s *WaitlistService) Leave(ctx context.Context, actor *models.User, programID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.Leave(ctx, actor.ID, programID); err != nil {
		return notFoundOr(err, "waitlist entry not found", "failed to leave waitlist")
	}
	return nil
}

// ListOwn returns actor's waitlist entries.
func (s *WaitlistService) ListOwn(ctx context.Context, actor *models.User) ([]models.WaitlistDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	entries, err := s.repo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, internalErr(err, "failed to list waitlist")
	}
	if entries == nil {
		entries = []models.WaitlistDetail{}
	}
	return entries, nil
}

// ListForProgram returns a program's queue in position order. Requires
// view_applications or ownership of the program.
func (s *WaitlistService) ListForProgram(ctx context.Context, actor *models.User, programID string) ([]models.WaitlistDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	owner := actor.IsPreceptor() && program.PreceptorID != nil && *program.PreceptorID == actor.ID
	if !owner && !s.perms.HasPermission(actor, authz.ViewApplications) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this waitlist")
	}
	entries, err := s.repo.ListByProgram(ctx, programID)
	if err != nil {
		return nil, internalErr(err, "failed to list waitlist")
	}
	if entries == nil {
		entries = []models.WaitlistDetail{}
	}
	return entries, nil
}
