package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/middleware"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, actor *models.User) (*models.StudentDashboard, error)
	Preceptor(ctx context.Context, actor *models.User) (*models.PreceptorDashboard, error)
	Admin(ctx context.Context, actor *models.User) (*models.AdminStats, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Student godoc
// @Summary Student dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/student [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	summary, err := h.service.Student(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Preceptor godoc
// @Summary Preceptor dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/preceptor [get]
func (h *DashboardHandler) Preceptor(c *gin.Context) {
	summary, err := h.service.Preceptor(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Admin godoc
// @Summary Platform statistics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	stats, cacheHit, err := h.service.Admin(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}
