package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/medrotation-api/internal/middleware"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type fakeDashboardSrv struct {
	adminResp     *models.AdminStats
	adminErr      error
	adminHit      bool
	preceptorResp *models.PreceptorDashboard
	preceptorErr  error
	lastActor     *models.User
}

func (f *fakeDashboardSrv) Student(_ context.Context, actor *models.User) (*models.StudentDashboard, error) {
	f.lastActor = actor
	return &models.StudentDashboard{Favorites: 2}, nil
}

func (f *fakeDashboardSrv) Preceptor(_ context.Context, actor *models.User) (*models.PreceptorDashboard, error) {
	f.lastActor = actor
	return f.preceptorResp, f.preceptorErr
}

func (f *fakeDashboardSrv) Admin(_ context.Context, actor *models.User) (*models.AdminStats, bool, error) {
	f.lastActor = actor
	return f.adminResp, f.adminHit, f.adminErr
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func TestDashboardHandlerAdminReportsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		adminResp: &models.AdminStats{Programs: 12, PendingReviews: 3},
		adminHit:  true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	c.Set(middleware.ContextUserKey, &models.User{ID: "adm-1", IsAdmin: true})

	handler.Admin(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cacheHit"])
	assert.Contains(t, envelope.Meta, "processingTimeMs")
	assert.Equal(t, float64(12), envelope.Data["programs"])
}

func TestDashboardHandlerAdminPropagatesForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{adminErr: appErrors.ErrForbidden})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/stats", nil)

	handler.Admin(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardHandlerPreceptorPassesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{
		preceptorResp: &models.PreceptorDashboard{PendingApplications: 4},
	}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/preceptor", nil)
	c.Set(middleware.ContextUserKey, &models.User{ID: "pre-1", UserType: models.UserTypePreceptor})

	handler.Preceptor(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, service.lastActor) {
		assert.Equal(t, "pre-1", service.lastActor.ID)
	}
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, float64(4), envelope.Data["pendingApplications"])
}

func TestDashboardHandlerStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/student", nil)
	c.Set(middleware.ContextUserKey, &models.User{ID: "stu-1"})

	handler.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
