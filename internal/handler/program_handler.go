package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/middleware"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

type programService interface {
	List(ctx context.Context, filter models.ProgramFilter) (*dto.ProgramList, *models.Pagination, bool, error)
	Featured(ctx context.Context, limit int) ([]models.ProgramDetail, error)
	Get(ctx context.Context, id string) (*models.ProgramDetail, error)
	Create(ctx context.Context, actor *models.User, req dto.ProgramRequest, meta models.RequestMeta) (*models.Program, error)
	Update(ctx context.Context, actor *models.User, id string, req dto.ProgramRequest, meta models.RequestMeta) (*models.Program, error)
	Delete(ctx context.Context, actor *models.User, id string, meta models.RequestMeta) error
}

// ProgramHandler serves the rotation program catalog.
type ProgramHandler struct {
	programs programService
}

// NewProgramHandler constructs a ProgramHandler.
func NewProgramHandler(programs programService) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

// List godoc
// @Summary List programs
// @Tags Programs
// @Produce json
// @Param specialty query string false "Specialty ID"
// @Param location query string false "Location substring"
// @Param type query string false "observership|hands_on|fellowship|clerkship"
// @Param minDuration query int false "Minimum duration in weeks"
// @Param maxDuration query int false "Maximum duration in weeks"
// @Param isFree query bool false "Only free or only paid programs"
// @Param isActive query bool false "Active flag"
// @Param isFeatured query bool false "Featured flag"
// @Param preceptorId query string false "Owning preceptor"
// @Param search query string false "Search title, hospital and description"
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	filter, err := dto.ParseProgramFilter(c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}
	list, pagination, cached, err := h.programs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, list, pagination, middleware.ExtractMeta(c))
}

// Featured godoc
// @Summary Featured programs
// @Tags Programs
// @Produce json
// @Param limit query int false "Maximum number of programs"
// @Success 200 {object} response.Envelope
// @Router /programs/featured [get]
func (h *ProgramHandler) Featured(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))
	programs, err := h.programs.Featured(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, programs)
}

// Get godoc
// @Summary Get program
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.programs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, program)
}

// Create godoc
// @Summary Create program
// @Tags Programs
// @Accept json
// @Produce json
// @Param payload body dto.ProgramRequest true "Program payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /programs [post]
func (h *ProgramHandler) Create(c *gin.Context) {
	var req dto.ProgramRequest
	if !bindJSON(c, &req, "invalid program payload") {
		return
	}
	program, err := h.programs.Create(c.Request.Context(), currentUser(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, program)
}

// Update godoc
// @Summary Update program
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body dto.ProgramRequest true "Program payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id} [put]
func (h *ProgramHandler) Update(c *gin.Context) {
	var req dto.ProgramRequest
	if !bindJSON(c, &req, "invalid program payload") {
		return
	}
	program, err := h.programs.Update(c.Request.Context(), currentUser(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, program)
}

// Delete godoc
// @Summary Delete program
// @Tags Programs
// @Param id path string true "Program ID"
// @Success 204
// @Security BearerAuth
// @Router /programs/{id} [delete]
func (h *ProgramHandler) Delete(c *gin.Context) {
	if err := h.programs.Delete(c.Request.Context(), currentUser(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
