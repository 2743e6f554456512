package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// WaitlistHandler manages program waitlists.
type WaitlistHandler struct {
	waitlist *service.WaitlistService
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(waitlist *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

// Join godoc
// @Summary Join a program waitlist
// @Tags Waitlist
// @Accept json
// @Produce json
// @Param payload body dto.JoinWaitlistRequest true "Program"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /waitlist [post]
func (h *WaitlistHandler) Join(c *gin.Context) {
	var req dto.JoinWaitlistRequest
	if !bindJSON(c, &req, "invalid waitlist payload") {
		return
	}
	entry, err := h.waitlist.Join(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Leave godoc
// @Summary Leave a program waitlist
// @Tags Waitlist
// @Param programId path string true "Program ID"
// @Success 204
// @Security BearerAuth
// @Router /waitlist/{programId} [delete]
func (h *WaitlistHandler) Leave(c *gin.Context) {
	if err := h.waitlist.Leave(c.Request.Context(), currentUser(c), c.Param("programId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListOwn godoc
// @Summary My waitlist entries
// @Tags Waitlist
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /waitlist [get]
func (h *WaitlistHandler) ListOwn(c *gin.Context) {
	entries, err := h.waitlist.ListOwn(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// ListForProgram godoc
// @Summary Waitlist of a program
// @Tags Waitlist
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id}/waitlist [get]
func (h *WaitlistHandler) ListForProgram(c *gin.Context) {
	entries, err := h.waitlist.ListForProgram(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}
