package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

type applicationService interface {
	Apply(ctx context.Context, actor *models.User, req dto.ApplyRequest) (*models.ApplicationDetail, bool, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.ApplicationDetail, error)
	List(ctx context.Context, actor *models.User, filter models.ApplicationFilter) (*dto.ApplicationList, *models.Pagination, error)
	Update(ctx context.Context, actor *models.User, id string, req dto.UpdateApplicationRequest, meta models.RequestMeta) (*models.ApplicationDetail, error)
}

// ApplicationHandler exposes the application workflow.
type ApplicationHandler struct {
	apps applicationService
}

// NewApplicationHandler constructs an ApplicationHandler.
func NewApplicationHandler(apps applicationService) *ApplicationHandler {
	return &ApplicationHandler{apps: apps}
}

// List godoc
// @Summary List applications
// @Description Students see their own applications, preceptors those for their programs, reviewers everything.
// @Tags Applications
// @Produce json
// @Param userId query string false "Applicant"
// @Param programId query string false "Program"
// @Param status query string false "Application status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	filter := models.ApplicationFilter{
		UserID:    optionalQuery(c, "userId"),
		ProgramID: optionalQuery(c, "programId"),
		Page:      page,
		Limit:     limit,
	}
	if raw := c.Query("status"); raw != "" {
		status := models.NormalizeApplicationStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Invalid("status", "app_status", "is not a known application status"))
			return
		}
		filter.Status = &status
	}
	list, pagination, err := h.apps.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, pagination)
}

// Apply godoc
// @Summary Apply to a program
// @Description Applying twice returns the existing application with 200.
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.ApplyRequest true "Application"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dto.ApplyRequest
	if !bindJSON(c, &req, "invalid application payload") {
		return
	}
	app, created, err := h.apps.Apply(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, app)
		return
	}
	response.OK(c, app)
}

// Get godoc
// @Summary Get application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.apps.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// Update godoc
// @Summary Review or edit an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id} [put]
func (h *ApplicationHandler) Update(c *gin.Context) {
	var req dto.UpdateApplicationRequest
	if !bindJSON(c, &req, "invalid application update") {
		return
	}
	app, err := h.apps.Update(c.Request.Context(), currentUser(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}
