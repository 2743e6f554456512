package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/internal/repository"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type mockApplicationRepo struct {
	apps     map[string]*models.ApplicationDetail
	programs map[string]*models.ProgramDetail
	reviews  []models.ApplicationReview
	lastList models.ApplicationFilter
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{
		apps:     map[string]*models.ApplicationDetail{},
		programs: map[string]*models.ProgramDetail{},
	}
}

func (m *mockApplicationRepo) addProgram(id, preceptorID string, seats int) {
	p := &models.ProgramDetail{}
	p.ID = id
	p.IsActive = true
	p.TotalSeats = seats
	p.AvailableSeats = seats
	if preceptorID != "" {
		p.PreceptorID = &preceptorID
	}
	m.programs[id] = p
}

func (m *mockApplicationRepo) addApplication(id, userID, programID string, status models.ApplicationStatus) {
	app := &models.ApplicationDetail{}
	app.ID = id
	app.UserID = userID
	app.ProgramID = programID
	app.Status = status
	if p, ok := m.programs[programID]; ok {
		app.ProgramPreceptorID = p.PreceptorID
	}
	m.apps[id] = app
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *models.Application) (bool, error) {
	for _, existing := range m.apps {
		if existing.UserID == app.UserID && existing.ProgramID == app.ProgramID {
			return false, nil
		}
	}
	m.addApplication("app-"+app.UserID+"-"+app.ProgramID, app.UserID, app.ProgramID, models.ApplicationPending)
	return true, nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	if app, ok := m.apps[id]; ok {
		copy := *app
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) FindByUserAndProgram(ctx context.Context, userID, programID string) (*models.ApplicationDetail, error) {
	for _, app := range m.apps {
		if app.UserID == userID && app.ProgramID == programID {
			copy := *app
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	m.lastList = filter
	var out []models.ApplicationDetail
	for _, app := range m.apps {
		if filter.UserID != nil && app.UserID != *filter.UserID {
			continue
		}
		out = append(out, *app)
	}
	return out, len(out), nil
}

func (m *mockApplicationRepo) UpdateApplicantFields(ctx context.Context, id string, coverLetter *string, documents []string) error {
	app := m.apps[id]
	if app.Status != models.ApplicationPending {
		return repository.ErrStaleStatus
	}
	if coverLetter != nil {
		app.CoverLetter = coverLetter
	}
	if documents != nil {
		app.Documents = documents
	}
	return nil
}

func (m *mockApplicationRepo) ApplyReview(ctx context.Context, programID string, review models.ApplicationReview) error {
	app := m.apps[review.ApplicationID]
	if app.Status != review.From {
		return repository.ErrStaleStatus
	}
	program := m.programs[programID]
	switch {
	case review.SeatDelta < 0:
		if program.AvailableSeats == 0 {
			return repository.ErrNoSeats
		}
		program.AvailableSeats--
	case review.SeatDelta > 0 && program.AvailableSeats < program.TotalSeats:
		program.AvailableSeats++
	}
	app.Status = review.To
	if review.Notes != nil {
		app.ReviewNotes = review.Notes
	}
	if review.ReviewerID != "" {
		at := review.ReviewedAt
		reviewer := review.ReviewerID
		app.ReviewedAt = &at
		app.ReviewedBy = &reviewer
	}
	m.reviews = append(m.reviews, review)
	return nil
}

type programLookupStub struct{ repo *mockApplicationRepo }

func (p programLookupStub) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	if program, ok := p.repo.programs[id]; ok {
		return program, nil
	}
	return nil, sql.ErrNoRows
}

type auditStub struct{ entries []*models.AuditLog }

func (a *auditStub) Create(ctx context.Context, entry *models.AuditLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

func superAdmin() *models.User {
	role := models.AdminRoleSuper
	return &models.User{ID: "admin-1", IsAdmin: true, AdminRole: &role}
}

func student(id string) *models.User {
	return &models.User{ID: id, UserType: models.UserTypeStudent}
}

func preceptor(id string) *models.User {
	return &models.User{ID: id, UserType: models.UserTypePreceptor}
}

func newApplicationServiceFixture() (*ApplicationService, *mockApplicationRepo, *auditStub) {
	repo := newMockApplicationRepo()
	audit := &auditStub{}
	svc := NewApplicationService(repo, programLookupStub{repo: repo}, audit, nil, nil, NewMetricsService(), nil, zap.NewNop())
	return svc, repo, audit
}

func statusReq(status string) dto.UpdateApplicationRequest {
	return dto.UpdateApplicationRequest{Status: &status}
}

func TestSeatDelta(t *testing.T) {
	assert.Equal(t, -1, SeatDelta(models.ApplicationPending, models.ApplicationAccepted))
	assert.Equal(t, -1, SeatDelta(models.ApplicationWaitlisted, models.ApplicationAccepted))
	assert.Equal(t, 0, SeatDelta(models.ApplicationAccepted, models.ApplicationVisaPending))
	assert.Equal(t, 0, SeatDelta(models.ApplicationVisaConfirmed, models.ApplicationEnrolled))
	assert.Equal(t, 1, SeatDelta(models.ApplicationVisaPending, models.ApplicationRejected))
	assert.Equal(t, 1, SeatDelta(models.ApplicationAccepted, models.ApplicationWithdrawn))
	assert.Equal(t, 0, SeatDelta(models.ApplicationPending, models.ApplicationRejected))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.ApplicationPending, models.ApplicationAccepted))
	assert.True(t, CanTransition(models.ApplicationVisaConfirmed, models.ApplicationEnrolled))
	assert.False(t, CanTransition(models.ApplicationRejected, models.ApplicationAccepted))
	assert.False(t, CanTransition(models.ApplicationEnrolled, models.ApplicationWithdrawn))
	assert.False(t, CanTransition(models.ApplicationPending, models.ApplicationEnrolled))
}

func TestApplicationServiceApplyIsIdempotent(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 2)

	first, created, err := svc.Apply(context.Background(), student("stu-1"), dto.ApplyRequest{ProgramID: "prog-1"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.Apply(context.Background(), student("stu-1"), dto.ApplyRequest{ProgramID: "prog-1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.apps, 1)
}

func TestApplicationServiceApplyRejectsInactiveProgram(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 2)
	repo.programs["prog-1"].IsActive = false

	_, _, err := svc.Apply(context.Background(), student("stu-1"), dto.ApplyRequest{ProgramID: "prog-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Apply(context.Background(), student("stu-1"), dto.ApplyRequest{ProgramID: "missing"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceAcceptStampsReviewerAndTakesSeat(t *testing.T) {
	svc, repo, audit := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	notes := "strong letter"
	req := statusReq("approved")
	req.ReviewNotes = &notes
	app, err := svc.Update(context.Background(), superAdmin(), "app-1", req, models.RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationAccepted, app.Status)
	require.NotNil(t, app.ReviewedBy)
	assert.Equal(t, "admin-1", *app.ReviewedBy)
	require.NotNil(t, app.ReviewedAt)
	assert.Equal(t, fixed, *app.ReviewedAt)
	assert.Equal(t, 0, repo.programs["prog-1"].AvailableSeats)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionApplicationReview, audit.entries[0].Action)
	assert.Equal(t, "10.0.0.1", audit.entries[0].IPAddress)
}

func TestApplicationServiceSeatExhaustion(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)
	repo.addApplication("app-2", "stu-2", "prog-1", models.ApplicationPending)

	_, err := svc.Update(context.Background(), superAdmin(), "app-1", statusReq("accepted"), models.RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), superAdmin(), "app-2", statusReq("accepted"), models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSeatsExhausted.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.ApplicationPending, repo.apps["app-2"].Status)
	assert.Equal(t, 0, repo.programs["prog-1"].AvailableSeats)
}

func TestApplicationServiceRejectAfterAcceptReleasesSeat(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)

	_, err := svc.Update(context.Background(), superAdmin(), "app-1", statusReq("accepted"), models.RequestMeta{})
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), superAdmin(), "app-1", statusReq("rejected"), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.programs["prog-1"].AvailableSeats)
}

func TestApplicationServiceRejectsInvalidTransition(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationRejected)

	_, err := svc.Update(context.Background(), superAdmin(), "app-1", statusReq("accepted"), models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.reviews)
}

func TestApplicationServiceNonOwnerCannotUpdate(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "prec-1", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)

	_, err := svc.Update(context.Background(), preceptor("prec-2"), "app-1", statusReq("accepted"), models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), student("stu-2"), "app-1", statusReq("withdrawn"), models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.ApplicationPending, repo.apps["app-1"].Status)
}

func TestApplicationServiceOwningPreceptorReviews(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "prec-1", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)

	app, err := svc.Update(context.Background(), preceptor("prec-1"), "app-1", statusReq("waitlisted"), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWaitlisted, app.Status)
}

func TestApplicationServiceApplicantMayOnlyWithdraw(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)

	_, err := svc.Update(context.Background(), student("stu-1"), "app-1", statusReq("accepted"), models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	app, err := svc.Update(context.Background(), student("stu-1"), "app-1", statusReq("withdrawn"), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWithdrawn, app.Status)
	assert.Nil(t, app.ReviewedBy)
}

func TestApplicationServiceEditKeepsOmittedFields(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)
	letter := "original"
	repo.apps["app-1"].CoverLetter = &letter
	repo.apps["app-1"].Documents = []string{"cv.pdf"}

	app, err := svc.Update(context.Background(), student("stu-1"), "app-1",
		dto.UpdateApplicationRequest{Documents: []string{"cv-v2.pdf", "letter.pdf"}}, models.RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, app.CoverLetter)
	assert.Equal(t, "original", *app.CoverLetter)
	assert.Equal(t, []string{"cv-v2.pdf", "letter.pdf"}, []string(app.Documents))

	edited := "edited"
	app, err = svc.Update(context.Background(), student("stu-1"), "app-1",
		dto.UpdateApplicationRequest{CoverLetter: &edited}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "edited", *app.CoverLetter)
	assert.Equal(t, []string{"cv-v2.pdf", "letter.pdf"}, []string(app.Documents))
}

func TestApplicationServiceRejectedUpdateStoresNoEdits(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)
	letter := "original"
	repo.apps["app-1"].CoverLetter = &letter

	edited, status := "edited", "accepted"
	_, err := svc.Update(context.Background(), student("stu-1"), "app-1",
		dto.UpdateApplicationRequest{CoverLetter: &edited, Status: &status}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "original", *repo.apps["app-1"].CoverLetter)
	assert.Equal(t, models.ApplicationPending, repo.apps["app-1"].Status)
}

func TestApplicationServiceEditAndWithdraw(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "", 1)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)

	edited, status := "final words", "withdrawn"
	app, err := svc.Update(context.Background(), student("stu-1"), "app-1",
		dto.UpdateApplicationRequest{CoverLetter: &edited, Status: &status}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWithdrawn, app.Status)
	assert.Equal(t, "final words", *app.CoverLetter)
}

func TestApplicationServiceListScopesStudents(t *testing.T) {
	svc, repo, _ := newApplicationServiceFixture()
	repo.addProgram("prog-1", "prec-1", 3)
	repo.addApplication("app-1", "stu-1", "prog-1", models.ApplicationPending)
	repo.addApplication("app-2", "stu-2", "prog-1", models.ApplicationPending)

	list, pagination, err := svc.List(context.Background(), student("stu-1"), models.ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, list.Applications, 1)
	assert.Equal(t, "stu-1", list.Applications[0].UserID)
	assert.Equal(t, 20, pagination.Limit)

	other := "stu-2"
	_, _, err = svc.List(context.Background(), student("stu-1"), models.ApplicationFilter{UserID: &other})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), preceptor("prec-1"), models.ApplicationFilter{})
	require.NoError(t, err)
	require.NotNil(t, repo.lastList.PreceptorID)
	assert.Equal(t, "prec-1", *repo.lastList.PreceptorID)
}
