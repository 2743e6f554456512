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

type newsletterRepository interface {
	Subscribe(ctx context.Context, email string) (*models.NewsletterSubscription, error)
	Unsubscribe(ctx context.Context, email string) error
	List(ctx context.Context, activeOnly bool, page, limit int) ([]models.NewsletterSubscription, int, error)
}

type contactRepository interface {
	Create(ctx context.Context, query *models.ContactQuery) error
	List(ctx context.Context, status *models.ContactStatus, page, limit int) ([]models.ContactQuery, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ContactStatus) error
}

// InquiryService handles the public newsletter and contact forms and their
// admin views.
type InquiryService struct {
	newsletter newsletterRepository
	contact    contactRepository
	perms      *authz.Table
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewInquiryService constructs an InquiryService.
func NewInquiryService(newsletter newsletterRepository, contact contactRepository, perms *authz.Table, validate *validator.Validate, logger *zap.Logger) *InquiryService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &InquiryService{newsletter: newsletter, contact: contact, perms: perms, validator: validate, logger: logger}
}

// Subscribe adds or reactivates a newsletter subscription.
func (s *InquiryService) Subscribe(ctx context.Context, req dto.SubscribeRequest) (*models.NewsletterSubscription, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid subscription payload")
	}
	sub, err := s.newsletter.Subscribe(ctx, req.Email)
	if err != nil {
		return nil, internalErr(err, "failed to subscribe")
	}
	return sub, nil
}

// Unsubscribe deactivates an email address.
func (s *InquiryService) Unsubscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.newsletter.Unsubscribe(ctx, email); err != nil {
		return notFoundOr(err, "subscription not found", "failed to unsubscribe")
	}
	return nil
}

// Subscribers lists subscriptions for admins with view_analytics.
func (s *InquiryService) Subscribers(ctx context.Context, actor *models.User, activeOnly bool, page, limit int) ([]models.NewsletterSubscription, *models.Pagination, error) {
	if err := s.authorize(actor); err != nil {
		return nil, nil, err
	}
	page, limit = models.NormalizePage(page, limit)
	subs, total, err := s.newsletter.List(ctx, activeOnly, page, limit)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list subscriptions")
	}
	if subs == nil {
		subs = []models.NewsletterSubscription{}
	}
	return subs, models.NewPagination(page, limit, total), nil
}

// Contact stores a contact form message.
func (s *InquiryService) Contact(ctx context.Context, req dto.ContactRequest) (*models.ContactQuery, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid contact payload")
	}
	query := &models.ContactQuery{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Subject: strings.TrimSpace(req.Subject),
		Message: req.Message,
	}
	if err := s.contact.Create(ctx, query); err != nil {
		return nil, internalErr(err, "failed to store contact query")
	}
	s.logger.Info("contact query received", zap.String("contact_id", query.ID))
	return query, nil
}

// ContactQueries lists contact messages for admins with view_analytics.
func (s *InquiryService) ContactQueries(ctx context.Context, actor *models.User, status *models.ContactStatus, page, limit int) ([]models.ContactQuery, *models.Pagination, error) {
	if err := s.authorize(actor); err != nil {
		return nil, nil, err
	}
	page, limit = models.NormalizePage(page, limit)
	queries, total, err := s.contact.List(ctx, status, page, limit)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list contact queries")
	}
	if queries == nil {
		queries = []models.ContactQuery{}
	}
	return queries, models.NewPagination(page, limit, total), nil
}

// UpdateContactStatus moves a contact query along new → in_progress → resolved.
func (s *InquiryService) UpdateContactStatus(ctx context.Context, actor *models.User, id string, req dto.ContactStatusRequest) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid contact status")
	}
	if err := s.contact.UpdateStatus(ctx, id, models.ContactStatus(req.Status)); err != nil {
		return notFoundOr(err, "contact query not found", "failed to update contact query")
	}
	return nil
}

func (s *InquiryService) authorize(actor *models.User) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !s.perms.HasPermission(actor, authz.ViewAnalytics) {
		return appErrors.Clone(appErrors.ErrForbidden, "missing capability view_analytics")
	}
	return nil
}
