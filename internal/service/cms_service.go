package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/slug"
)

type cmsRepository interface {
	ListPages(ctx context.Context, status *models.ContentStatus) ([]models.ContentPage, error)
	FindPageBySlug(ctx context.Context, slug string) (*models.ContentPage, error)
	CreatePage(ctx context.Context, page *models.ContentPage) error
	UpdatePage(ctx context.Context, page *models.ContentPage) error
	DeletePage(ctx context.Context, id string) error
	ListSections(ctx context.Context, pageID string, status *models.ContentStatus) ([]models.ContentSection, error)
	UpsertSection(ctx context.Context, section *models.ContentSection) (*models.ContentSection, error)
	ReorderSections(ctx context.Context, pageID string, keys []string) error
	DeleteSection(ctx context.Context, pageID, key string) error
	CreateMedia(ctx context.Context, asset *models.MediaAsset) error
	ListMedia(ctx context.Context, filter models.ContentFilter) ([]models.MediaAsset, int, error)
	DeleteMedia(ctx context.Context, id string) error
	ListBlogPosts(ctx context.Context, filter models.ContentFilter) ([]models.BlogPost, int, error)
	FindBlogPost(ctx context.Context, idOrSlug string) (*models.BlogPost, error)
	CreateBlogPost(ctx context.Context, post *models.BlogPost) error
	UpdateBlogPost(ctx context.Context, post *models.BlogPost) error
	DeleteBlogPost(ctx context.Context, id string) error
	ListCourses(ctx context.Context, filter models.ContentFilter) ([]models.Course, int, error)
	FindCourse(ctx context.Context, idOrSlug string) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id string) error
}

// CMSService manages structured site content. Readers without
// manage_content only ever see published content.
type CMSService struct {
	repo      cmsRepository
	perms     *authz.Table
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCMSService constructs a CMSService.
func NewCMSService(repo cmsRepository, perms *authz.Table, validate *validator.Validate, logger *zap.Logger) *CMSService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &CMSService{repo: repo, perms: perms, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *CMSService) canManage(actor *models.User) bool {
	return s.perms.HasPermission(actor, authz.ManageContent)
}

func (s *CMSService) authorize(actor *models.User) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !s.canManage(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "missing capability manage_content")
	}
	return nil
}

// visibleStatus narrows reads to published content for non-managers.
func (s *CMSService) visibleStatus(actor *models.User, requested *models.ContentStatus) *models.ContentStatus {
	if s.canManage(actor) {
		return requested
	}
	published := models.ContentPublished
	return &published
}

// ListPages lists pages visible to actor.
func (s *CMSService) ListPages(ctx context.Context, actor *models.User) ([]models.ContentPage, error) {
	pages, err := s.repo.ListPages(ctx, s.visibleStatus(actor, nil))
	if err != nil {
		return nil, internalErr(err, "failed to list pages")
	}
	return pages, nil
}

// GetPage returns a page with the sections visible to actor.
func (s *CMSService) GetPage(ctx context.Context, actor *models.User, pageSlug string) (*models.PageWithSections, error) {
	page, err := s.findPage(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	status := s.visibleStatus(actor, nil)
	if status != nil && page.Status != *status {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
	}
	sections, err := s.repo.ListSections(ctx, page.ID, status)
	if err != nil {
		return nil, internalErr(err, "failed to list sections")
	}
	return &models.PageWithSections{ContentPage: *page, Sections: sections}, nil
}

// Sections lists a page's sections in display order.
func (s *CMSService) Sections(ctx context.Context, actor *models.User, pageSlug string) ([]models.ContentSection, error) {
	page, err := s.GetPage(ctx, actor, pageSlug)
	if err != nil {
		return nil, err
	}
	return page.Sections, nil
}

// CreatePage adds a page.
func (s *CMSService) CreatePage(ctx context.Context, actor *models.User, req dto.PageRequest) (*models.ContentPage, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	page, err := s.buildPage(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreatePage(ctx, page); err != nil {
		return nil, slugConflictOr(err, "failed to create page")
	}
	return page, nil
}

// UpdatePage rewrites the page stored under pageSlug.
func (s *CMSService) UpdatePage(ctx context.Context, actor *models.User, pageSlug string, req dto.PageRequest) (*models.ContentPage, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	existing, err := s.findPage(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	if req.Slug == "" {
		req.Slug = existing.Slug
	}
	page, err := s.buildPage(req)
	if err != nil {
		return nil, err
	}
	page.ID = existing.ID
	page.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdatePage(ctx, page); err != nil {
		return nil, slugConflictOr(err, "failed to update page")
	}
	return page, nil
}

// DeletePage removes a page and its sections.
func (s *CMSService) DeletePage(ctx context.Context, actor *models.User, pageSlug string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	page, err := s.findPage(ctx, pageSlug)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePage(ctx, page.ID); err != nil {
		return notFoundOr(err, "page not found", "failed to delete page")
	}
	return nil
}

// UpsertSection creates or replaces the section key of a page. json
// sections must carry a JSON document in data.
func (s *CMSService) UpsertSection(ctx context.Context, actor *models.User, pageSlug, key string, req dto.SectionRequest) (*models.ContentSection, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 96 {
		return nil, appErrors.Invalid("sectionKey", "required", "must be 1 to 96 characters")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid section payload")
	}
	sectionType := models.SectionType(req.SectionType)
	var data datatypes.JSON
	if sectionType == models.SectionJSON {
		if len(req.Data) == 0 {
			return nil, appErrors.Invalid("data", "required", "json sections require a data document")
		}
		data = datatypes.JSON(req.Data)
	}
	page, err := s.findPage(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	section := &models.ContentSection{
		PageID:      page.ID,
		SectionKey:  key,
		SectionType: sectionType,
		Title:       req.Title,
		Content:     req.Content,
		Data:        data,
		SortOrder:   req.SortOrder,
		Status:      contentStatusOrDraft(req.Status),
		UpdatedBy:   &actor.ID,
	}
	stored, err := s.repo.UpsertSection(ctx, section)
	if err != nil {
		return nil, internalErr(err, "failed to save section")
	}
	return stored, nil
}

// ReorderSections sets the display order of a page's sections. Every key
// must belong to the page.
func (s *CMSService) ReorderSections(ctx context.Context, actor *models.User, pageSlug string, req dto.ReorderRequest) ([]models.ContentSection, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid reorder payload")
	}
	page, err := s.findPage(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReorderSections(ctx, page.ID, req.Keys); err != nil {
		return nil, notFoundOr(err, "unknown section key", "failed to reorder sections")
	}
	sections, err := s.repo.ListSections(ctx, page.ID, nil)
	if err != nil {
		return nil, internalErr(err, "failed to list sections")
	}
	return sections, nil
}

// DeleteSection removes one section.
func (s *CMSService) DeleteSection(ctx context.Context, actor *models.User, pageSlug, key string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	page, err := s.findPage(ctx, pageSlug)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSection(ctx, page.ID, key); err != nil {
		return notFoundOr(err, "section not found", "failed to delete section")
	}
	return nil
}

// RegisterMedia records an asset stored outside this service.
func (s *CMSService) RegisterMedia(ctx context.Context, actor *models.User, req dto.MediaRequest) (*models.MediaAsset, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid media payload")
	}
	asset := &models.MediaAsset{
		FileName:     req.FileName,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
		URL:          req.URL,
		AltText:      req.AltText,
		UploadedBy:   &actor.ID,
	}
	if len(req.Metadata) > 0 {
		asset.Metadata = datatypes.JSON(req.Metadata)
	}
	if err := s.repo.CreateMedia(ctx, asset); err != nil {
		return nil, internalErr(err, "failed to register media")
	}
	return asset, nil
}

// ListMedia lists media records for content managers.
func (s *CMSService) ListMedia(ctx context.Context, actor *models.User, filter models.ContentFilter) ([]models.MediaAsset, *models.Pagination, error) {
	if err := s.authorize(actor); err != nil {
		return nil, nil, err
	}
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	assets, total, err := s.repo.ListMedia(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list media")
	}
	return assets, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// DeleteMedia removes a media record.
func (s *CMSService) DeleteMedia(ctx context.Context, actor *models.User, id string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteMedia(ctx, id); err != nil {
		return notFoundOr(err, "media asset not found", "failed to delete media")
	}
	return nil
}

// ListBlogPosts lists posts visible to actor.
func (s *CMSService) ListBlogPosts(ctx context.Context, actor *models.User, filter models.ContentFilter) ([]models.BlogPost, *models.Pagination, error) {
	filter.Status = s.visibleStatus(actor, filter.Status)
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	posts, total, err := s.repo.ListBlogPosts(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list blog posts")
	}
	return posts, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// GetBlogPost fetches a post by id or slug.
func (s *CMSService) GetBlogPost(ctx context.Context, actor *models.User, idOrSlug string) (*models.BlogPost, error) {
	post, err := s.repo.FindBlogPost(ctx, idOrSlug)
	if err != nil {
		return nil, notFoundOr(err, "blog post not found", "failed to load blog post")
	}
	if !s.canManage(actor) && post.Status != models.ContentPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
	}
	return post, nil
}

// CreateBlogPost adds a post authored by actor.
func (s *CMSService) CreateBlogPost(ctx context.Context, actor *models.User, req dto.BlogPostRequest) (*models.BlogPost, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	post, err := s.buildBlogPost(req, nil)
	if err != nil {
		return nil, err
	}
	post.AuthorID = &actor.ID
	if err := s.repo.CreateBlogPost(ctx, post); err != nil {
		return nil, slugConflictOr(err, "failed to create blog post")
	}
	return post, nil
}

// UpdateBlogPost rewrites a post. The first publication time is kept.
func (s *CMSService) UpdateBlogPost(ctx context.Context, actor *models.User, id string, req dto.BlogPostRequest) (*models.BlogPost, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindBlogPost(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "blog post not found", "failed to load blog post")
	}
	post, err := s.buildBlogPost(req, existing)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBlogPost(ctx, post); err != nil {
		return nil, slugConflictOr(err, "failed to update blog post")
	}
	return post, nil
}

// DeleteBlogPost removes a post.
func (s *CMSService) DeleteBlogPost(ctx context.Context, actor *models.User, id string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteBlogPost(ctx, id); err != nil {
		return notFoundOr(err, "blog post not found", "failed to delete blog post")
	}
	return nil
}

// ListCourses lists courses visible to actor.
func (s *CMSService) ListCourses(ctx context.Context, actor *models.User, filter models.ContentFilter) ([]models.Course, *models.Pagination, error) {
	filter.Status = s.visibleStatus(actor, filter.Status)
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	courses, total, err := s.repo.ListCourses(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list courses")
	}
	return courses, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// GetCourse fetches a course by id or slug.
func (s *CMSService) GetCourse(ctx context.Context, actor *models.User, idOrSlug string) (*models.Course, error) {
	course, err := s.repo.FindCourse(ctx, idOrSlug)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if !s.canManage(actor) && course.Status != models.ContentPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

// CreateCourse adds a course.
func (s *CMSService) CreateCourse(ctx context.Context, actor *models.User, req dto.CourseRequest) (*models.Course, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	course, err := s.buildCourse(req, nil)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, slugConflictOr(err, "failed to create course")
	}
	return course, nil
}

// UpdateCourse rewrites a course.
func (s *CMSService) UpdateCourse(ctx context.Context, actor *models.User, id string, req dto.CourseRequest) (*models.Course, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindCourse(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	course, err := s.buildCourse(req, existing)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, slugConflictOr(err, "failed to update course")
	}
	return course, nil
}

// DeleteCourse removes a course.
func (s *CMSService) DeleteCourse(ctx context.Context, actor *models.User, id string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		return notFoundOr(err, "course not found", "failed to delete course")
	}
	return nil
}

func (s *CMSService) findPage(ctx context.Context, pageSlug string) (*models.ContentPage, error) {
	page, err := s.repo.FindPageBySlug(ctx, pageSlug)
	if err != nil {
		return nil, notFoundOr(err, "page not found", "failed to load page")
	}
	return page, nil
}

func (s *CMSService) buildPage(req dto.PageRequest) (*models.ContentPage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid page payload")
	}
	pageSlug, err := resolveSlug(req.Slug, req.Title)
	if err != nil {
		return nil, err
	}
	return &models.ContentPage{
		Slug:            pageSlug,
		Title:           strings.TrimSpace(req.Title),
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		Status:          contentStatusOrDraft(req.Status),
	}, nil
}

func (s *CMSService) buildBlogPost(req dto.BlogPostRequest, current *models.BlogPost) (*models.BlogPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid blog post payload")
	}
	if req.Slug == "" && current != nil {
		req.Slug = current.Slug
	}
	postSlug, err := resolveSlug(req.Slug, req.Title)
	if err != nil {
		return nil, err
	}
	post := &models.BlogPost{
		Slug:            postSlug,
		Title:           strings.TrimSpace(req.Title),
		Excerpt:         req.Excerpt,
		Content:         req.Content,
		CoverImageURL:   req.CoverImageURL,
		Tags:            req.Tags,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		Status:          contentStatusOrDraft(req.Status),
	}
	if current != nil {
		post.ID = current.ID
		post.AuthorID = current.AuthorID
		post.CreatedAt = current.CreatedAt
		post.PublishedAt = current.PublishedAt
	}
	if post.Status == models.ContentPublished && post.PublishedAt == nil {
		now := s.now()
		post.PublishedAt = &now
	}
	return post, nil
}

func (s *CMSService) buildCourse(req dto.CourseRequest, current *models.Course) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	if req.Slug == "" && current != nil {
		req.Slug = current.Slug
	}
	courseSlug, err := resolveSlug(req.Slug, req.Title)
	if err != nil {
		return nil, err
	}
	course := &models.Course{
		Slug:          courseSlug,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Instructor:    req.Instructor,
		SpecialtyID:   req.SpecialtyID,
		Price:         req.Price,
		DurationHours: req.DurationHours,
		Status:        contentStatusOrDraft(req.Status),
	}
	if len(req.Syllabus) > 0 {
		course.Syllabus = datatypes.JSON(req.Syllabus)
	}
	if current != nil {
		course.ID = current.ID
		course.CreatedAt = current.CreatedAt
	}
	return course, nil
}

// resolveSlug returns explicit when it is already canonical, or derives a
// slug from title when explicit is empty.
func resolveSlug(explicit, title string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if !slug.Valid(explicit) {
			return "", appErrors.Invalid("slug", "slug", "must be lowercase letters, digits and hyphens")
		}
		return explicit, nil
	}
	derived := slug.Make(title)
	if derived == "" {
		return "", appErrors.Invalid("slug", "required", "cannot be derived from title")
	}
	return derived, nil
}

func contentStatusOrDraft(status string) models.ContentStatus {
	if status == "" {
		return models.ContentDraft
	}
	return models.ContentStatus(status)
}

func slugConflictOr(err error, message string) error {
	if appErrors.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "slug already in use")
	}
	return notFoundOr(err, "content not found", message)
}
