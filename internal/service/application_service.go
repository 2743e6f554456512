package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/internal/repository"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) (bool, error)
	FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	FindByUserAndProgram(ctx context.Context, userID, programID string) (*models.ApplicationDetail, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	UpdateApplicantFields(ctx context.Context, id string, coverLetter *string, documents []string) error
	ApplyReview(ctx context.Context, programID string, review models.ApplicationReview) error
}

type programLookup interface {
	FindByID(ctx context.Context, id string) (*models.ProgramDetail, error)
}

var applicationTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationPending:       {models.ApplicationAccepted, models.ApplicationRejected, models.ApplicationWaitlisted, models.ApplicationWithdrawn},
	models.ApplicationWaitlisted:    {models.ApplicationAccepted, models.ApplicationRejected, models.ApplicationWithdrawn},
	models.ApplicationAccepted:      {models.ApplicationVisaPending, models.ApplicationRejected, models.ApplicationWithdrawn},
	models.ApplicationVisaPending:   {models.ApplicationVisaConfirmed, models.ApplicationRejected, models.ApplicationWithdrawn},
	models.ApplicationVisaConfirmed: {models.ApplicationEnrolled, models.ApplicationRejected},
}

// CanTransition reports whether the workflow allows moving from one status to another.
func CanTransition(from, to models.ApplicationStatus) bool {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SeatDelta returns -1 when a transition takes a seat, +1 when it releases
// one and 0 otherwise.
func SeatDelta(from, to models.ApplicationStatus) int {
	switch {
	case !from.HoldsSeat() && to.HoldsSeat():
		return -1
	case from.HoldsSeat() && !to.HoldsSeat():
		return 1
	}
	return 0
}

// ApplicationService runs the application workflow.
type ApplicationService struct {
	apps      applicationRepository
	programs  programLookup
	audit     auditRecorder
	cache     *CacheService
	perms     *authz.Table
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(apps applicationRepository, programs programLookup, audit auditRecorder, cache *CacheService, perms *authz.Table, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &ApplicationService{
		apps:      apps,
		programs:  programs,
		audit:     audit,
		cache:     cache,
		perms:     perms,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply submits an application for actor. Applying twice to the same
// program returns the existing application; the boolean reports whether a
// new one was created.
func (s *ApplicationService) Apply(ctx context.Context, actor *models.User, req dto.ApplyRequest) (*models.ApplicationDetail, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Validation(err, "invalid application payload")
	}
	program, err := s.programs.FindByID(ctx, req.ProgramID)
	if err != nil {
		return nil, false, notFoundOr(err, "program not found", "failed to load program")
	}
	if !program.IsActive {
		return nil, false, appErrors.Clone(appErrors.ErrConflict, "program is not accepting applications")
	}

	app := &models.Application{
		UserID:      actor.ID,
		ProgramID:   req.ProgramID,
		CoverLetter: req.CoverLetter,
		Documents:   req.Documents,
	}
	created, err := s.apps.Create(ctx, app)
	if err != nil {
		return nil, false, internalErr(err, "failed to create application")
	}
	detail, err := s.apps.FindByUserAndProgram(ctx, actor.ID, req.ProgramID)
	if err != nil {
		return nil, false, notFoundOr(err, "application not found", "failed to load application")
	}
	if created {
		s.logger.Info("application submitted", zap.String("application_id", detail.ID), zap.String("program_id", req.ProgramID), zap.String("user_id", actor.ID))
	}
	return detail, created, nil
}

// Get returns an application visible to actor.
func (s *ApplicationService) Get(ctx context.Context, actor *models.User, id string) (*models.ApplicationDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != actor.ID && !s.canView(actor, app) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this application")
	}
	return app, nil
}

// List returns applications scoped to what actor may see: everything with
// view_applications, a preceptor's own programs, or otherwise the actor's
// own applications.
func (s *ApplicationService) List(ctx context.Context, actor *models.User, filter models.ApplicationFilter) (*dto.ApplicationList, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	switch {
	case s.perms.HasPermission(actor, authz.ViewApplications):
	case actor.IsPreceptor():
		filter.PreceptorID = &actor.ID
	default:
		if filter.UserID != nil && *filter.UserID != actor.ID {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "students may only list their own applications")
		}
		filter.UserID = &actor.ID
	}

	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list applications")
	}
	if apps == nil {
		apps = []models.ApplicationDetail{}
	}
	pagination := models.NewPagination(filter.Page, filter.Limit, total)
	return &dto.ApplicationList{Applications: apps, TotalCount: total, HasMore: pagination.HasMore}, pagination, nil
}

// Update applies a reviewer decision or an applicant edit. Reviewers are
// holders of review_applications and the preceptor owning the program;
// applicants may edit a pending submission or withdraw.
func (s *ApplicationService) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateApplicationRequest, meta models.RequestMeta) (*models.ApplicationDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid application update")
	}
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	reviewer := s.canReview(actor, app)
	owner := app.UserID == actor.ID
	if !reviewer && !owner {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this application")
	}

	edits := req.CoverLetter != nil || req.Documents != nil
	if edits && !owner {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the applicant may edit the submission")
	}
	if edits && app.Status != models.ApplicationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only pending applications can be edited")
	}

	target := app.Status
	if req.Status != nil {
		target = models.NormalizeApplicationStatus(*req.Status)
	}
	var (
		changeStatus bool
		notes        *string
		reviewerID   string
	)
	switch {
	case reviewer && (req.Status != nil || req.ReviewNotes != nil):
		changeStatus, notes, reviewerID = true, req.ReviewNotes, actor.ID
	case req.Status != nil && target != app.Status:
		if target != models.ApplicationWithdrawn {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "applicants may only withdraw their application")
		}
		changeStatus = true
	case req.ReviewNotes != nil:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers may write review notes")
	}
	if changeStatus && target != app.Status && !CanTransition(app.Status, target) {
		return nil, invalidTransition(app.Status, target)
	}

	// Edits are stored only once the whole request has been authorized.
	if edits {
		if err := s.apps.UpdateApplicantFields(ctx, id, req.CoverLetter, req.Documents); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "only pending applications can be edited")
			}
			return nil, internalErr(err, "failed to update application")
		}
	}
	if changeStatus {
		if err := s.transition(ctx, actor, app, target, notes, reviewerID, meta); err != nil {
			return nil, err
		}
	}

	return s.load(ctx, id)
}

func (s *ApplicationService) transition(ctx context.Context, actor *models.User, app *models.ApplicationDetail, to models.ApplicationStatus, notes *string, reviewerID string, meta models.RequestMeta) error {
	from := app.Status
	if to != from && !CanTransition(from, to) {
		return invalidTransition(from, to)
	}
	review := models.ApplicationReview{
		ApplicationID: app.ID,
		From:          from,
		To:            to,
		Notes:         notes,
		ReviewerID:    reviewerID,
		ReviewedAt:    s.now(),
		SeatDelta:     SeatDelta(from, to),
	}
	if err := s.apps.ApplyReview(ctx, app.ProgramID, review); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoSeats):
			s.metrics.RecordSeatConflict()
			s.logger.Info("no seats left for application", zap.String("application_id", app.ID), zap.String("program_id", app.ProgramID))
			return appErrors.ErrSeatsExhausted
		case errors.Is(err, repository.ErrStaleStatus):
			return appErrors.Clone(appErrors.ErrConflict, "application changed concurrently, reload and retry")
		}
		return internalErr(err, "failed to update application status")
	}

	if review.SeatDelta != 0 {
		s.cache.Invalidate(ctx, catalogCachePrefix+"*")
	}
	if to != from {
		s.metrics.RecordTransition(from, to)
		s.logger.Info("application status changed",
			zap.String("application_id", app.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("actor_id", actor.ID),
		)
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionApplicationReview, "application", app.ID,
		map[string]interface{}{"status": from, "reviewNotes": app.ReviewNotes},
		map[string]interface{}{"status": to, "reviewNotes": notes},
		meta)
	return nil
}

func invalidTransition(from, to models.ApplicationStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move application from %s to %s", from, to))
}

func (s *ApplicationService) load(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "application not found", "failed to load application")
	}
	return app, nil
}

func (s *ApplicationService) ownsProgram(actor *models.User, app *models.ApplicationDetail) bool {
	return actor.IsPreceptor() && app.ProgramPreceptorID != nil && *app.ProgramPreceptorID == actor.ID
}

func (s *ApplicationService) canReview(actor *models.User, app *models.ApplicationDetail) bool {
	return s.perms.HasPermission(actor, authz.ReviewApplications) || s.ownsProgram(actor, app)
}

func (s *ApplicationService) canView(actor *models.User, app *models.ApplicationDetail) bool {
	return s.perms.HasPermission(actor, authz.ViewApplications) || s.canReview(actor, app)
}
