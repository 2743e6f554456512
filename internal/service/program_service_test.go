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

type mockProgramRepo struct {
	programs map[string]*models.ProgramDetail
	updated  *models.Program
}

func (m *mockProgramRepo) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	return nil, 0, nil
}

func (m *mockProgramRepo) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	if p, ok := m.programs[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgramRepo) Create(ctx context.Context, program *models.Program) error {
	program.ID = "prog-new"
	return nil
}

func (m *mockProgramRepo) Update(ctx context.Context, program *models.Program, expectedSeats int) error {
	if m.programs[program.ID].AvailableSeats != expectedSeats {
		return sql.ErrNoRows
	}
	m.updated = program
	m.programs[program.ID].Program = *program
	return nil
}

func (m *mockProgramRepo) Delete(ctx context.Context, id string) error {
	delete(m.programs, id)
	return nil
}

func newProgramServiceFixture(preceptorID string) (*ProgramService, *mockProgramRepo) {
	existing := &models.ProgramDetail{}
	existing.ID = "prog-1"
	existing.Title = "Cardiology Observership"
	existing.TotalSeats = 4
	existing.AvailableSeats = 4
	existing.PreceptorID = &preceptorID
	repo := &mockProgramRepo{programs: map[string]*models.ProgramDetail{"prog-1": existing}}
	return NewProgramService(repo, nil, nil, nil, nil, zap.NewNop()), repo
}

func programReq(preceptorID *string) dto.ProgramRequest {
	return dto.ProgramRequest{
		Title:        "Cardiology Observership",
		HospitalName: "Mass General",
		Location:     "Boston",
		Type:         "observership",
		Duration:     4,
		TotalSeats:   4,
		PreceptorID:  preceptorID,
	}
}

func TestProgramServiceAdminReassignsPreceptor(t *testing.T) {
	svc, repo := newProgramServiceFixture("prec-1")
	next := "prec-2"

	program, err := svc.Update(context.Background(), superAdmin(), "prog-1", programReq(&next), models.RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, repo.updated.PreceptorID)
	assert.Equal(t, "prec-2", *repo.updated.PreceptorID)
	assert.Equal(t, "prec-2", *program.PreceptorID)
}

func TestProgramServiceUpdateWithoutPreceptorKeepsOwner(t *testing.T) {
	svc, repo := newProgramServiceFixture("prec-1")

	_, err := svc.Update(context.Background(), superAdmin(), "prog-1", programReq(nil), models.RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, repo.updated.PreceptorID)
	assert.Equal(t, "prec-1", *repo.updated.PreceptorID)
}

func TestProgramServiceOwnerCannotHandOverProgram(t *testing.T) {
	svc, repo := newProgramServiceFixture("prec-1")
	other := "prec-2"

	_, err := svc.Update(context.Background(), preceptor("prec-1"), "prog-1", programReq(&other), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "prec-1", *repo.updated.PreceptorID)
}

func TestProgramServiceOtherPreceptorForbidden(t *testing.T) {
	svc, _ := newProgramServiceFixture("prec-1")

	_, err := svc.Update(context.Background(), preceptor("prec-9"), "prog-1", programReq(nil), models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestProgramServiceCreateRejectsStudents(t *testing.T) {
	svc, _ := newProgramServiceFixture("prec-1")

	_, err := svc.Create(context.Background(), student("stu-1"), programReq(nil), models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
