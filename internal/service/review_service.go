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

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id string) (*models.ReviewDetail, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, int, error)
	Moderate(ctx context.Context, id string, status models.ReviewStatus, moderatorID string) error
	RatingSummary(ctx context.Context, programID string) (*models.RatingSummary, error)
}

// ReviewService handles program reviews and their moderation.
type ReviewService struct {
	repo      reviewRepository
	programs  programLookup
	audit     auditRecorder
	perms     *authz.Table
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(repo reviewRepository, programs programLookup, audit auditRecorder, perms *authz.Table, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &ReviewService{repo: repo, programs: programs, audit: audit, perms: perms, validator: validate, logger: logger}
}

// Create submits a review. New reviews wait for moderation.
func (s *ReviewService) Create(ctx context.Context, actor *models.User, req dto.CreateReviewRequest) (*models.Review, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid review payload")
	}
	if _, err := s.programs.FindByID(ctx, req.ProgramID); err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	review := &models.Review{
		UserID:    actor.ID,
		ProgramID: req.ProgramID,
		Rating:    req.Rating,
		Title:     req.Title,
		Content:   strings.TrimSpace(req.Content),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, internalErr(err, "failed to create review")
	}
	return review, nil
}

// ListForProgram returns the approved reviews of a program.
func (s *ReviewService) ListForProgram(ctx context.Context, programID string, page, limit int) ([]models.ReviewDetail, *models.Pagination, error) {
	approved := models.ReviewApproved
	return s.list(ctx, models.ReviewFilter{ProgramID: &programID, Status: &approved, Page: page, Limit: limit})
}

// Queue returns reviews for moderators, pending ones by default.
func (s *ReviewService) Queue(ctx context.Context, actor *models.User, status *models.ReviewStatus, page, limit int) ([]models.ReviewDetail, *models.Pagination, error) {
	if !s.perms.HasPermission(actor, authz.ModerateReviews) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "missing capability moderate_reviews")
	}
	if status == nil {
		pending := models.ReviewPending
		status = &pending
	}
	return s.list(ctx, models.ReviewFilter{Status: status, Page: page, Limit: limit})
}

func (s *ReviewService) list(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, *models.Pagination, error) {
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	reviews, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list reviews")
	}
	if reviews == nil {
		reviews = []models.ReviewDetail{}
	}
	return reviews, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Moderate approves or rejects a review.
func (s *ReviewService) Moderate(ctx context.Context, actor *models.User, id string, req dto.ModerateReviewRequest, meta models.RequestMeta) (*models.ReviewDetail, error) {
	if !s.perms.HasPermission(actor, authz.ModerateReviews) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "missing capability moderate_reviews")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid moderation payload")
	}
	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "review not found", "failed to load review")
	}
	status := models.ReviewStatus(req.Status)
	if err := s.repo.Moderate(ctx, id, status, actor.ID); err != nil {
		return nil, notFoundOr(err, "review not found", "failed to moderate review")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionReviewModerate, "review", id,
		map[string]interface{}{"status": before.Status},
		map[string]interface{}{"status": status},
		meta)
	after, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "review not found", "failed to load review")
	}
	return after, nil
}

// Rating summarises the approved reviews of a program.
func (s *ReviewService) Rating(ctx context.Context, programID string) (*models.RatingSummary, error) {
	if _, err := s.programs.FindByID(ctx, programID); err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	summary, err := s.repo.RatingSummary(ctx, programID)
	if err != nil {
		return nil, internalErr(err, "failed to summarise ratings")
	}
	return summary, nil
}
