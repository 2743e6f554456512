package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/middleware"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/internal/service"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type programServiceMock struct {
	filter models.ProgramFilter
	cached bool
}

func (m *programServiceMock) List(ctx context.Context, filter models.ProgramFilter) (*dto.ProgramList, *models.Pagination, bool, error) {
	m.filter = filter
	return &dto.ProgramList{Programs: []models.ProgramDetail{}}, models.NewPagination(1, 20, 0), m.cached, nil
}

func (m *programServiceMock) Featured(ctx context.Context, limit int) ([]models.ProgramDetail, error) {
	return nil, nil
}

func (m *programServiceMock) Get(ctx context.Context, id string) (*models.ProgramDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
}

func (m *programServiceMock) Create(ctx context.Context, actor *models.User, req dto.ProgramRequest, meta models.RequestMeta) (*models.Program, error) {
	return &models.Program{ID: "prog-1", Title: req.Title}, nil
}

func (m *programServiceMock) Update(ctx context.Context, actor *models.User, id string, req dto.ProgramRequest, meta models.RequestMeta) (*models.Program, error) {
	return &models.Program{ID: id, Title: req.Title}, nil
}

func (m *programServiceMock) Delete(ctx context.Context, actor *models.User, id string, meta models.RequestMeta) error {
	return nil
}

// applicationServiceMock enforces the owner rule the way the real service does.
type applicationServiceMock struct {
	apps    map[string]*models.ApplicationDetail
	created bool
}

func (m *applicationServiceMock) Apply(ctx context.Context, actor *models.User, req dto.ApplyRequest) (*models.ApplicationDetail, bool, error) {
	return &models.ApplicationDetail{Application: models.Application{ID: "app-1", UserID: actor.ID, ProgramID: req.ProgramID}}, m.created, nil
}

func (m *applicationServiceMock) Get(ctx context.Context, actor *models.User, id string) (*models.ApplicationDetail, error) {
	return m.apps[id], nil
}

func (m *applicationServiceMock) List(ctx context.Context, actor *models.User, filter models.ApplicationFilter) (*dto.ApplicationList, *models.Pagination, error) {
	return &dto.ApplicationList{}, models.NewPagination(filter.Page, filter.Limit, 0), nil
}

func (m *applicationServiceMock) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateApplicationRequest, meta models.RequestMeta) (*models.ApplicationDetail, error) {
	app, ok := m.apps[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	if app.UserID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this application")
	}
	return app, nil
}

type exportServiceMock struct {
	download *service.ExportDownload
	err      error
}

func (m *exportServiceMock) Create(ctx context.Context, actor *models.User, req dto.CreateExportRequest) (*models.ExportJob, error) {
	return &models.ExportJob{ID: "exp-1", Format: req.Format, Status: models.ExportQueued}, nil
}

func (m *exportServiceMock) Get(ctx context.Context, actor *models.User, id string) (*models.ExportJob, error) {
	return &models.ExportJob{ID: id, Status: models.ExportFinished}, nil
}

func (m *exportServiceMock) Download(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestProgramHandlerRejectsUnknownFilterKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &programServiceMock{}
	handler := NewProgramHandler(svc)

	c, w := newGinContext(http.MethodGet, "/programs?specialty=cardio&colour=blue", nil)
	handler.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "colour", env.Error.Details[0].Field)
}

func TestProgramHandlerParsesIsFree(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &programServiceMock{cached: true}
	handler := NewProgramHandler(svc)

	c, w := newGinContext(http.MethodGet, "/programs?isFree=true&type=hands_on&page=2&limit=10", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter.IsFree)
	assert.True(t, *svc.filter.IsFree)
	require.NotNil(t, svc.filter.Type)
	assert.Equal(t, models.ProgramType("hands_on"), *svc.filter.Type)
	assert.Equal(t, 2, svc.filter.Page)
	assert.Equal(t, 10, svc.filter.Limit)
	assert.Equal(t, true, decode(t, w).Meta["cacheHit"])
}

func TestProgramHandlerRejectsMalformedIsFree(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgramHandler(&programServiceMock{})

	c, w := newGinContext(http.MethodGet, "/programs?isFree=maybe", nil)
	handler.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "isFree", env.Error.Details[0].Field)
}

func TestApplicationHandlerUpdateByNonOwnerIsForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &applicationServiceMock{apps: map[string]*models.ApplicationDetail{
		"app-1": {Application: models.Application{ID: "app-1", UserID: "stu-1", Status: models.ApplicationPending}},
	}}
	handler := NewApplicationHandler(svc)

	body, _ := json.Marshal(map[string]string{"coverLetter": "let me in"})
	c, w := newGinContext(http.MethodPut, "/applications/app-1", body)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: "stu-2", UserType: models.UserTypeStudent})

	handler.Update(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, decode(t, w).Error.Code)
}

func TestApplicationHandlerApplyStatusReflectsCreation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &applicationServiceMock{created: true}
	handler := NewApplicationHandler(svc)
	body, _ := json.Marshal(dto.ApplyRequest{ProgramID: "prog-1"})

	c, w := newGinContext(http.MethodPost, "/applications", body)
	c.Set(middleware.ContextUserKey, &models.User{ID: "stu-1"})
	handler.Apply(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.created = false
	c, w = newGinContext(http.MethodPost, "/applications", body)
	c.Set(middleware.ContextUserKey, &models.User{ID: "stu-1"})
	handler.Apply(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApplicationHandlerRejectsUnknownStatusFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApplicationHandler(&applicationServiceMock{})

	c, w := newGinContext(http.MethodGet, "/applications?status=maybe", nil)
	c.Set(middleware.ContextUserKey, &models.User{ID: "stu-1"})
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerCreateAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{})
	body, _ := json.Marshal(dto.CreateExportRequest{Format: "csv"})

	c, w := newGinContext(http.MethodPost, "/admin/exports", body)
	c.Set(middleware.ContextUserKey, &models.User{ID: "admin-1", IsAdmin: true})
	handler.Create(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestExportHandlerDownloadStreamsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "applications.csv")
	require.NoError(t, os.WriteFile(path, []byte("Applicant,Email\nSam Lee,sam@example.com\n"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	handler := NewExportHandler(&exportServiceMock{download: &service.ExportDownload{
		File:        file,
		Filename:    "applications.csv",
		ContentType: "text/csv",
	}})

	c, w := newGinContext(http.MethodGet, "/exports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "applications.csv")
	assert.Contains(t, w.Body.String(), "Sam Lee")
}

func TestExportHandlerDownloadRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})

	c, w := newGinContext(http.MethodGet, "/exports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
