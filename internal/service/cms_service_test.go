package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type mockCMSRepo struct {
	pages       map[string]*models.ContentPage
	sections    map[string][]models.ContentSection
	posts       map[string]*models.BlogPost
	courses     map[string]*models.Course
	pageStatus  *models.ContentStatus
	postFilter  models.ContentFilter
	savedPost   *models.BlogPost
	savedCourse *models.Course
}

func newMockCMSRepo() *mockCMSRepo {
	return &mockCMSRepo{
		pages:    map[string]*models.ContentPage{},
		sections: map[string][]models.ContentSection{},
		posts:    map[string]*models.BlogPost{},
		courses:  map[string]*models.Course{},
	}
}

func (m *mockCMSRepo) ListPages(ctx context.Context, status *models.ContentStatus) ([]models.ContentPage, error) {
	m.pageStatus = status
	out := []models.ContentPage{}
	for _, p := range m.pages {
		if status == nil || p.Status == *status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockCMSRepo) FindPageBySlug(ctx context.Context, slug string) (*models.ContentPage, error) {
	if p, ok := m.pages[slug]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCMSRepo) CreatePage(ctx context.Context, page *models.ContentPage) error {
	page.ID = "page-" + page.Slug
	m.pages[page.Slug] = page
	return nil
}

func (m *mockCMSRepo) UpdatePage(ctx context.Context, page *models.ContentPage) error {
	m.pages[page.Slug] = page
	return nil
}

func (m *mockCMSRepo) DeletePage(ctx context.Context, id string) error { return nil }

func (m *mockCMSRepo) ListSections(ctx context.Context, pageID string, status *models.ContentStatus) ([]models.ContentSection, error) {
	out := []models.ContentSection{}
	for _, s := range m.sections[pageID] {
		if status == nil || s.Status == *status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockCMSRepo) UpsertSection(ctx context.Context, section *models.ContentSection) (*models.ContentSection, error) {
	m.sections[section.PageID] = append(m.sections[section.PageID], *section)
	return section, nil
}

func (m *mockCMSRepo) ReorderSections(ctx context.Context, pageID string, keys []string) error {
	return nil
}

func (m *mockCMSRepo) DeleteSection(ctx context.Context, pageID, key string) error { return nil }

func (m *mockCMSRepo) CreateMedia(ctx context.Context, asset *models.MediaAsset) error { return nil }

func (m *mockCMSRepo) ListMedia(ctx context.Context, filter models.ContentFilter) ([]models.MediaAsset, int, error) {
	return nil, 0, nil
}

func (m *mockCMSRepo) DeleteMedia(ctx context.Context, id string) error { return nil }

func (m *mockCMSRepo) ListBlogPosts(ctx context.Context, filter models.ContentFilter) ([]models.BlogPost, int, error) {
	m.postFilter = filter
	return []models.BlogPost{}, 0, nil
}

func (m *mockCMSRepo) FindBlogPost(ctx context.Context, idOrSlug string) (*models.BlogPost, error) {
	for _, p := range m.posts {
		if p.ID == idOrSlug || p.Slug == idOrSlug {
			copy := *p
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCMSRepo) CreateBlogPost(ctx context.Context, post *models.BlogPost) error {
	post.ID = "post-" + post.Slug
	m.posts[post.ID] = post
	m.savedPost = post
	return nil
}

func (m *mockCMSRepo) UpdateBlogPost(ctx context.Context, post *models.BlogPost) error {
	m.posts[post.ID] = post
	m.savedPost = post
	return nil
}

func (m *mockCMSRepo) DeleteBlogPost(ctx context.Context, id string) error { return nil }

func (m *mockCMSRepo) ListCourses(ctx context.Context, filter models.ContentFilter) ([]models.Course, int, error) {
	return []models.Course{}, 0, nil
}

func (m *mockCMSRepo) FindCourse(ctx context.Context, idOrSlug string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.ID == idOrSlug || c.Slug == idOrSlug {
			copy := *c
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCMSRepo) CreateCourse(ctx context.Context, course *models.Course) error {
	course.ID = "course-" + course.Slug
	m.courses[course.ID] = course
	m.savedCourse = course
	return nil
}

func (m *mockCMSRepo) UpdateCourse(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = course
	m.savedCourse = course
	return nil
}

func (m *mockCMSRepo) DeleteCourse(ctx context.Context, id string) error { return nil }

func contentManager() *models.User {
	role := models.AdminRoleRegular
	return &models.User{ID: "editor-1", IsAdmin: true, AdminRole: &role}
}

func newCMSServiceFixture() (*CMSService, *mockCMSRepo) {
	repo := newMockCMSRepo()
	return NewCMSService(repo, nil, nil, zap.NewNop()), repo
}

func TestCMSServicePublicSeesPublishedPagesOnly(t *testing.T) {
	svc, repo := newCMSServiceFixture()
	repo.pages["about"] = &models.ContentPage{ID: "page-about", Slug: "about", Status: models.ContentPublished}
	repo.pages["pricing"] = &models.ContentPage{ID: "page-pricing", Slug: "pricing", Status: models.ContentDraft}
	repo.sections["page-about"] = []models.ContentSection{
		{PageID: "page-about", SectionKey: "hero", Status: models.ContentPublished},
		{PageID: "page-about", SectionKey: "faq", Status: models.ContentDraft},
	}

	pages, err := svc.ListPages(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "about", pages[0].Slug)

	_, err = svc.GetPage(context.Background(), student("stu-1"), "pricing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	page, err := svc.GetPage(context.Background(), nil, "about")
	require.NoError(t, err)
	require.Len(t, page.Sections, 1)
	assert.Equal(t, "hero", page.Sections[0].SectionKey)

	page, err = svc.GetPage(context.Background(), contentManager(), "about")
	require.NoError(t, err)
	assert.Len(t, page.Sections, 2)

	_, err = svc.ListPages(context.Background(), contentManager())
	require.NoError(t, err)
	assert.Nil(t, repo.pageStatus)
}

func TestCMSServiceListBlogPostsForcesPublishedForPublic(t *testing.T) {
	svc, repo := newCMSServiceFixture()
	draft := models.ContentDraft

	_, _, err := svc.ListBlogPosts(context.Background(), student("stu-1"), models.ContentFilter{Status: &draft})
	require.NoError(t, err)
	require.NotNil(t, repo.postFilter.Status)
	assert.Equal(t, models.ContentPublished, *repo.postFilter.Status)

	_, _, err = svc.ListBlogPosts(context.Background(), contentManager(), models.ContentFilter{Status: &draft})
	require.NoError(t, err)
	assert.Equal(t, models.ContentDraft, *repo.postFilter.Status)
}

func TestCMSServiceDraftPostsAndCoursesHiddenFromPublic(t *testing.T) {
	svc, repo := newCMSServiceFixture()
	repo.posts["post-1"] = &models.BlogPost{ID: "post-1", Slug: "match-day", Status: models.ContentDraft}
	repo.courses["course-1"] = &models.Course{ID: "course-1", Slug: "usmle-prep", Status: models.ContentArchived}

	_, err := svc.GetBlogPost(context.Background(), nil, "match-day")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	_, err = svc.GetCourse(context.Background(), student("stu-1"), "usmle-prep")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	post, err := svc.GetBlogPost(context.Background(), contentManager(), "match-day")
	require.NoError(t, err)
	assert.Equal(t, "post-1", post.ID)
}

func TestCMSServiceMutationsRequireManageContent(t *testing.T) {
	svc, _ := newCMSServiceFixture()

	_, err := svc.CreatePage(context.Background(), nil, dto.PageRequest{Title: "About"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.CreatePage(context.Background(), student("stu-1"), dto.PageRequest{Title: "About"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCMSServiceDerivesSlugFromTitle(t *testing.T) {
	svc, _ := newCMSServiceFixture()

	page, err := svc.CreatePage(context.Background(), contentManager(), dto.PageRequest{Title: "Café Résumé Tips!"})
	require.NoError(t, err)
	assert.Equal(t, "cafe-resume-tips", page.Slug)
	assert.Equal(t, models.ContentDraft, page.Status)

	_, err = svc.CreatePage(context.Background(), contentManager(), dto.PageRequest{Title: "About", Slug: "Not A Slug"})
	require.Error(t, err)
	assert.Equal(t, "slug", appErrors.FromError(err).Details[0].Field)
}

func TestCMSServiceBlogPostPublishedAtSetOnce(t *testing.T) {
	svc, repo := newCMSServiceFixture()
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	post, err := svc.CreateBlogPost(context.Background(), contentManager(), dto.BlogPostRequest{Title: "Match Day", Content: "body"})
	require.NoError(t, err)
	assert.Nil(t, post.PublishedAt)
	assert.Equal(t, "match-day", post.Slug)
	require.NotNil(t, post.AuthorID)

	post, err = svc.UpdateBlogPost(context.Background(), contentManager(), post.ID,
		dto.BlogPostRequest{Title: "Match Day", Content: "body", Status: "published"})
	require.NoError(t, err)
	require.NotNil(t, post.PublishedAt)
	assert.Equal(t, first, *post.PublishedAt)
	assert.Equal(t, "editor-1", *post.AuthorID)

	svc.now = func() time.Time { return first.Add(48 * time.Hour) }
	post, err = svc.UpdateBlogPost(context.Background(), contentManager(), post.ID,
		dto.BlogPostRequest{Title: "Match Day results", Content: "edited", Status: "published"})
	require.NoError(t, err)
	assert.Equal(t, first, *repo.savedPost.PublishedAt)
	assert.Equal(t, "match-day", post.Slug)
}

func TestCMSServiceJSONSectionRequiresData(t *testing.T) {
	svc, repo := newCMSServiceFixture()
	repo.pages["home"] = &models.ContentPage{ID: "page-home", Slug: "home", Status: models.ContentPublished}

	_, err := svc.UpsertSection(context.Background(), contentManager(), "home", "stats", dto.SectionRequest{SectionType: "json"})
	require.Error(t, err)
	assert.Equal(t, "data", appErrors.FromError(err).Details[0].Field)

	_, err = svc.UpsertSection(context.Background(), contentManager(), "home", "stats",
		dto.SectionRequest{SectionType: "json", Data: json.RawMessage(`{"programs":`)})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	section, err := svc.UpsertSection(context.Background(), contentManager(), "home", "stats",
		dto.SectionRequest{SectionType: "json", Data: json.RawMessage(`{"programs":42}`), Status: "published"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"programs":42}`, string(section.Data))
	assert.Equal(t, "page-home", section.PageID)

	text, err := svc.UpsertSection(context.Background(), contentManager(), "home", "intro",
		dto.SectionRequest{SectionType: "text", Content: "Welcome", Data: json.RawMessage(`{"ignored":true}`)})
	require.NoError(t, err)
	assert.Empty(t, text.Data)
}

func TestCMSServiceCourseUpdateKeepsSlug(t *testing.T) {
	svc, _ := newCMSServiceFixture()

	course, err := svc.CreateCourse(context.Background(), contentManager(), dto.CourseRequest{Title: "USMLE Step 1 Prep"})
	require.NoError(t, err)
	assert.Equal(t, "usmle-step-1-prep", course.Slug)

	updated, err := svc.UpdateCourse(context.Background(), contentManager(), course.ID, dto.CourseRequest{Title: "USMLE Step 1 Intensive"})
	require.NoError(t, err)
	assert.Equal(t, "usmle-step-1-prep", updated.Slug)
	assert.Equal(t, course.ID, updated.ID)
}
