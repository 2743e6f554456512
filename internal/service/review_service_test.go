package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type mockReviewRepo struct {
	reviews    map[string]*models.ReviewDetail
	lastFilter models.ReviewFilter
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	review.ID = "rev-new"
	review.Status = models.ReviewPending
	m.reviews[review.ID] = &models.ReviewDetail{Review: *review}
	return nil
}

func (m *mockReviewRepo) FindByID(ctx context.Context, id string) (*models.ReviewDetail, error) {
	if r, ok := m.reviews[id]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReviewRepo) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockReviewRepo) Moderate(ctx context.Context, id string, status models.ReviewStatus, moderatorID string) error {
	r, ok := m.reviews[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = status
	r.ModeratedBy = &moderatorID
	return nil
}

func (m *mockReviewRepo) RatingSummary(ctx context.Context, programID string) (*models.RatingSummary, error) {
	return &models.RatingSummary{ProgramID: programID, Average: 4.5, Count: 2}, nil
}

func newReviewServiceFixture() (*ReviewService, *mockReviewRepo, *auditStub) {
	programs := newMockApplicationRepo()
	programs.addProgram("prog-1", "", 2)
	repo := &mockReviewRepo{reviews: map[string]*models.ReviewDetail{}}
	audit := &auditStub{}
	return NewReviewService(repo, programLookupStub{repo: programs}, audit, nil, nil, zap.NewNop()), repo, audit
}

func TestReviewServiceRatingRange(t *testing.T) {
	svc, _, _ := newReviewServiceFixture()

	for _, rating := range []int{0, 6} {
		_, err := svc.Create(context.Background(), student("stu-1"), dto.CreateReviewRequest{ProgramID: "prog-1", Rating: rating, Content: "great"})
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		require.NotEmpty(t, appErr.Details)
		assert.Equal(t, "rating", appErr.Details[0].Field)
	}

	for _, rating := range []int{1, 5} {
		review, err := svc.Create(context.Background(), student("stu-1"), dto.CreateReviewRequest{ProgramID: "prog-1", Rating: rating, Content: "  great  "})
		require.NoError(t, err)
		assert.Equal(t, rating, review.Rating)
		assert.Equal(t, "great", review.Content)
		assert.Equal(t, models.ReviewPending, review.Status)
	}
}

func TestReviewServiceCreateUnknownProgram(t *testing.T) {
	svc, _, _ := newReviewServiceFixture()

	_, err := svc.Create(context.Background(), student("stu-1"), dto.CreateReviewRequest{ProgramID: "ghost", Rating: 3, Content: "ok"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceModerate(t *testing.T) {
	svc, repo, audit := newReviewServiceFixture()
	repo.reviews["rev-1"] = &models.ReviewDetail{Review: models.Review{ID: "rev-1", ProgramID: "prog-1", Status: models.ReviewPending}}

	_, err := svc.Moderate(context.Background(), student("stu-1"), "rev-1", dto.ModerateReviewRequest{Status: "approved"}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Moderate(context.Background(), superAdmin(), "rev-1", dto.ModerateReviewRequest{Status: "pending"}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	review, err := svc.Moderate(context.Background(), superAdmin(), "rev-1", dto.ModerateReviewRequest{Status: "approved"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, review.Status)
	require.NotNil(t, review.ModeratedBy)
	assert.Equal(t, "admin-1", *review.ModeratedBy)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionReviewModerate, audit.entries[0].Action)

	_, err = svc.Moderate(context.Background(), superAdmin(), "ghost", dto.ModerateReviewRequest{Status: "rejected"}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceListsScopeStatus(t *testing.T) {
	svc, repo, _ := newReviewServiceFixture()

	_, _, err := svc.ListForProgram(context.Background(), "prog-1", 1, 10)
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.ReviewApproved, *repo.lastFilter.Status)

	_, _, err = svc.Queue(context.Background(), superAdmin(), nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, *repo.lastFilter.Status)
	assert.Equal(t, models.DefaultPageSize, repo.lastFilter.Limit)

	_, _, err = svc.Queue(context.Background(), student("stu-1"), nil, 1, 10)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceRating(t *testing.T) {
	svc, _, _ := newReviewServiceFixture()

	summary, err := svc.Rating(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 4.5, summary.Average)

	_, err = svc.Rating(context.Background(), "ghost")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
