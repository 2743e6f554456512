package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// InquiryHandler exposes the newsletter and contact form.
type InquiryHandler struct {
	inquiries *service.InquiryService
}

// NewInquiryHandler constructs an InquiryHandler.
func NewInquiryHandler(inquiries *service.InquiryService) *InquiryHandler {
	return &InquiryHandler{inquiries: inquiries}
}

// Subscribe godoc
// @Summary Subscribe to the newsletter
// @Tags Engagement
// @Accept json
// @Produce json
// @Param payload body dto.SubscribeRequest true "Email"
// @Success 201 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /newsletter [post]
func (h *InquiryHandler) Subscribe(c *gin.Context) {
	var req dto.SubscribeRequest
	if !bindJSON(c, &req, "invalid subscription payload") {
		return
	}
	sub, err := h.inquiries.Subscribe(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// Unsubscribe godoc
// @Summary Unsubscribe from the newsletter
// @Tags Engagement
// @Param email path string true "Email"
// @Success 204
// @Router /newsletter/{email} [delete]
func (h *InquiryHandler) Unsubscribe(c *gin.Context) {
	if err := h.inquiries.Unsubscribe(c.Request.Context(), c.Param("email")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Subscribers godoc
// @Summary List newsletter subscribers
// @Tags Engagement
// @Produce json
// @Param active query bool false "Only active subscribers"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/newsletter [get]
func (h *InquiryHandler) Subscribers(c *gin.Context) {
	page, limit := pageParams(c)
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	subs, pagination, err := h.inquiries.Subscribers(c.Request.Context(), currentUser(c), activeOnly, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, pagination)
}

// Contact godoc
// @Summary Send a contact message
// @Tags Engagement
// @Accept json
// @Produce json
// @Param payload body dto.ContactRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /contact [post]
func (h *InquiryHandler) Contact(c *gin.Context) {
	var req dto.ContactRequest
	if !bindJSON(c, &req, "invalid contact payload") {
		return
	}
	query, err := h.inquiries.Contact(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, query)
}

// ContactQueries godoc
// @Summary List contact messages
// @Tags Engagement
// @Produce json
// @Param status query string false "new|in_progress|resolved"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/contact [get]
func (h *InquiryHandler) ContactQueries(c *gin.Context) {
	page, limit := pageParams(c)
	var status *models.ContactStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ContactStatus(raw)
		status = &s
	}
	queries, pagination, err := h.inquiries.ContactQueries(c.Request.Context(), currentUser(c), status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queries, pagination)
}

// UpdateContactStatus godoc
// @Summary Update a contact message status
// @Tags Engagement
// @Accept json
// @Param id path string true "Contact query ID"
// @Param payload body dto.ContactStatusRequest true "Status"
// @Success 204
// @Security BearerAuth
// @Router /admin/contact/{id} [put]
func (h *InquiryHandler) UpdateContactStatus(c *gin.Context) {
	var req dto.ContactStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	if err := h.inquiries.UpdateContactStatus(c.Request.Context(), currentUser(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
