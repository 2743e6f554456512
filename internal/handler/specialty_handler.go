package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// SpecialtyHandler serves the specialty taxonomy.
type SpecialtyHandler struct {
	specialties *service.SpecialtyService
}

// NewSpecialtyHandler constructs a SpecialtyHandler.
func NewSpecialtyHandler(specialties *service.SpecialtyService) *SpecialtyHandler {
	return &SpecialtyHandler{specialties: specialties}
}

// List godoc
// @Summary List specialties
// @Tags Specialties
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /specialties [get]
func (h *SpecialtyHandler) List(c *gin.Context) {
	specialties, err := h.specialties.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, specialties)
}

// Create godoc
// @Summary Create specialty
// @Tags Specialties
// @Accept json
// @Produce json
// @Param payload body dto.SpecialtyRequest true "Specialty"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /specialties [post]
func (h *SpecialtyHandler) Create(c *gin.Context) {
	var req dto.SpecialtyRequest
	if !bindJSON(c, &req, "invalid specialty payload") {
		return
	}
	specialty, err := h.specialties.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, specialty)
}

// Update godoc
// @Summary Update specialty
// @Tags Specialties
// @Accept json
// @Produce json
// @Param id path string true "Specialty ID"
// @Param payload body dto.SpecialtyRequest true "Specialty"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /specialties/{id} [put]
func (h *SpecialtyHandler) Update(c *gin.Context) {
	var req dto.SpecialtyRequest
	if !bindJSON(c, &req, "invalid specialty payload") {
		return
	}
	specialty, err := h.specialties.Update(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, specialty)
}

// Delete godoc
// @Summary Delete specialty
// @Tags Specialties
// @Param id path string true "Specialty ID"
// @Success 204
// @Security BearerAuth
// @Router /specialties/{id} [delete]
func (h *SpecialtyHandler) Delete(c *gin.Context) {
	if err := h.specialties.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
