package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// ReviewHandler exposes program reviews and their moderation.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create godoc
// @Summary Submit a review
// @Description Reviews start pending and are public once approved.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body dto.CreateReviewRequest true "Review"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	var req dto.CreateReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// ListForProgram godoc
// @Summary Approved reviews of a program
// @Tags Reviews
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/reviews [get]
func (h *ReviewHandler) ListForProgram(c *gin.Context) {
	page, limit := pageParams(c)
	reviews, pagination, err := h.reviews.ListForProgram(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}

// Rating godoc
// @Summary Program rating summary
// @Tags Reviews
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/rating [get]
func (h *ReviewHandler) Rating(c *gin.Context) {
	summary, err := h.reviews.Rating(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Queue godoc
// @Summary Review moderation queue
// @Tags Reviews
// @Produce json
// @Param status query string false "pending|approved|rejected"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reviews [get]
func (h *ReviewHandler) Queue(c *gin.Context) {
	page, limit := pageParams(c)
	var status *models.ReviewStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ReviewStatus(raw)
		status = &s
	}
	reviews, pagination, err := h.reviews.Queue(c.Request.Context(), currentUser(c), status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}

// Moderate godoc
// @Summary Approve or reject a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body dto.ModerateReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reviews/{id}/moderate [put]
func (h *ReviewHandler) Moderate(c *gin.Context) {
	var req dto.ModerateReviewRequest
	if !bindJSON(c, &req, "invalid moderation payload") {
		return
	}
	review, err := h.reviews.Moderate(c.Request.Context(), currentUser(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, review)
}
