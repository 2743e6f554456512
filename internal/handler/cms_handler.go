package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// CMSHandler serves pages, sections, media, blog posts and courses.
// Read routes are public and see published content only unless the caller
// holds manage_content.
type CMSHandler struct {
	cms *service.CMSService
}

// NewCMSHandler constructs a CMSHandler.
func NewCMSHandler(cms *service.CMSService) *CMSHandler {
	return &CMSHandler{cms: cms}
}

func contentFilter(c *gin.Context) models.ContentFilter {
	page, limit := pageParams(c)
	filter := models.ContentFilter{Tag: optionalQuery(c, "tag"), Search: c.Query("search"), Page: page, Limit: limit}
	if raw := c.Query("status"); raw != "" {
		status := models.ContentStatus(raw)
		filter.Status = &status
	}
	return filter
}

// ListPages godoc
// @Summary List CMS pages
// @Tags CMS
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cms/pages [get]
func (h *CMSHandler) ListPages(c *gin.Context) {
	pages, err := h.cms.ListPages(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pages)
}

// GetPage godoc
// @Summary Get a CMS page with its sections
// @Tags CMS
// @Produce json
// @Param slug path string true "Page slug"
// @Success 200 {object} response.Envelope
// @Router /cms/pages/{slug} [get]
func (h *CMSHandler) GetPage(c *gin.Context) {
	page, err := h.cms.GetPage(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// Sections godoc
// @Summary List sections of a page
// @Tags CMS
// @Produce json
// @Param slug path string true "Page slug"
// @Success 200 {object} response.Envelope
// @Router /cms/pages/{slug}/sections [get]
func (h *CMSHandler) Sections(c *gin.Context) {
	sections, err := h.cms.Sections(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sections)
}

// CreatePage godoc
// @Summary Create a CMS page
// @Tags CMS
// @Accept json
// @Produce json
// @Param payload body dto.PageRequest true "Page"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/pages [post]
func (h *CMSHandler) CreatePage(c *gin.Context) {
	var req dto.PageRequest
	if !bindJSON(c, &req, "invalid page payload") {
		return
	}
	page, err := h.cms.CreatePage(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, page)
}

// UpdatePage godoc
// @Summary Update a CMS page
// @Tags CMS
// @Accept json
// @Produce json
// @Param slug path string true "Page slug"
// @Param payload body dto.PageRequest true "Page"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/pages/{slug} [put]
func (h *CMSHandler) UpdatePage(c *gin.Context) {
	var req dto.PageRequest
	if !bindJSON(c, &req, "invalid page payload") {
		return
	}
	page, err := h.cms.UpdatePage(c.Request.Context(), currentUser(c), c.Param("slug"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// DeletePage godoc
// @Summary Delete a CMS page and its sections
// @Tags CMS
// @Param slug path string true "Page slug"
// @Success 204
// @Security BearerAuth
// @Router /cms/pages/{slug} [delete]
func (h *CMSHandler) DeletePage(c *gin.Context) {
	if err := h.cms.DeletePage(c.Request.Context(), currentUser(c), c.Param("slug")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpsertSection godoc
// @Summary Create or replace a page section
// @Tags CMS
// @Accept json
// @Produce json
// @Param slug path string true "Page slug"
// @Param key path string true "Section key"
// @Param payload body dto.SectionRequest true "Section"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/pages/{slug}/sections/{key} [put]
func (h *CMSHandler) UpsertSection(c *gin.Context) {
	var req dto.SectionRequest
	if !bindJSON(c, &req, "invalid section payload") {
		return
	}
	section, err := h.cms.UpsertSection(c.Request.Context(), currentUser(c), c.Param("slug"), c.Param("key"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, section)
}

// ReorderSections godoc
// @Summary Reorder page sections
// @Tags CMS
// @Accept json
// @Produce json
// @Param slug path string true "Page slug"
// @Param payload body dto.ReorderRequest true "Section keys in display order"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/pages/{slug}/sections/reorder [post]
func (h *CMSHandler) ReorderSections(c *gin.Context) {
	var req dto.ReorderRequest
	if !bindJSON(c, &req, "invalid reorder payload") {
		return
	}
	sections, err := h.cms.ReorderSections(c.Request.Context(), currentUser(c), c.Param("slug"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sections)
}

// DeleteSection godoc
// @Summary Delete a page section
// @Tags CMS
// @Param slug path string true "Page slug"
// @Param key path string true "Section key"
// @Success 204
// @Security BearerAuth
// @Router /cms/pages/{slug}/sections/{key} [delete]
func (h *CMSHandler) DeleteSection(c *gin.Context) {
	if err := h.cms.DeleteSection(c.Request.Context(), currentUser(c), c.Param("slug"), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMedia godoc
// @Summary List media assets
// @Tags CMS
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/media [get]
func (h *CMSHandler) ListMedia(c *gin.Context) {
	assets, pagination, err := h.cms.ListMedia(c.Request.Context(), currentUser(c), contentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assets, pagination)
}

// RegisterMedia godoc
// @Summary Register a media asset
// @Tags CMS
// @Accept json
// @Produce json
// @Param payload body dto.MediaRequest true "Asset"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/media [post]
func (h *CMSHandler) RegisterMedia(c *gin.Context) {
	var req dto.MediaRequest
	if !bindJSON(c, &req, "invalid media payload") {
		return
	}
	asset, err := h.cms.RegisterMedia(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, asset)
}

// DeleteMedia godoc
// @Summary Delete a media asset record
// @Tags CMS
// @Param id path string true "Asset ID"
// @Success 204
// @Security BearerAuth
// @Router /cms/media/{id} [delete]
func (h *CMSHandler) DeleteMedia(c *gin.Context) {
	if err := h.cms.DeleteMedia(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListBlogPosts godoc
// @Summary List blog posts
// @Tags CMS
// @Produce json
// @Param tag query string false "Tag"
// @Param search query string false "Search"
// @Success 200 {object} response.Envelope
// @Router /cms/blog [get]
func (h *CMSHandler) ListBlogPosts(c *gin.Context) {
	posts, pagination, err := h.cms.ListBlogPosts(c.Request.Context(), currentUser(c), contentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, pagination)
}

// GetBlogPost godoc
// @Summary Get a blog post by slug or id
// @Tags CMS
// @Produce json
// @Param slug path string true "Slug or ID"
// @Success 200 {object} response.Envelope
// @Router /cms/blog/{slug} [get]
func (h *CMSHandler) GetBlogPost(c *gin.Context) {
	post, err := h.cms.GetBlogPost(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, post)
}

// CreateBlogPost godoc
// @Summary Create a blog post
// @Tags CMS
// @Accept json
// @Produce json
// @Param payload body dto.BlogPostRequest true "Post"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/blog [post]
func (h *CMSHandler) CreateBlogPost(c *gin.Context) {
	var req dto.BlogPostRequest
	if !bindJSON(c, &req, "invalid blog post payload") {
		return
	}
	post, err := h.cms.CreateBlogPost(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// UpdateBlogPost godoc
// @Summary Update a blog post
// @Tags CMS
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body dto.BlogPostRequest true "Post"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/blog/{id} [put]
func (h *CMSHandler) UpdateBlogPost(c *gin.Context) {
	var req dto.BlogPostRequest
	if !bindJSON(c, &req, "invalid blog post payload") {
		return
	}
	post, err := h.cms.UpdateBlogPost(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, post)
}

// DeleteBlogPost godoc
// @Summary Delete a blog post
// @Tags CMS
// @Param id path string true "Post ID"
// @Success 204
// @Security BearerAuth
// @Router /cms/blog/{id} [delete]
func (h *CMSHandler) DeleteBlogPost(c *gin.Context) {
	if err := h.cms.DeleteBlogPost(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCourses godoc
// @Summary List courses
// @Tags CMS
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cms/courses [get]
func (h *CMSHandler) ListCourses(c *gin.Context) {
	courses, pagination, err := h.cms.ListCourses(c.Request.Context(), currentUser(c), contentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// GetCourse godoc
// @Summary Get a course by slug or id
// @Tags CMS
// @Produce json
// @Param slug path string true "Slug or ID"
// @Success 200 {object} response.Envelope
// @Router /cms/courses/{slug} [get]
func (h *CMSHandler) GetCourse(c *gin.Context) {
	course, err := h.cms.GetCourse(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// CreateCourse godoc
// @Summary Create a course
// @Tags CMS
// @Accept json
// @Produce json
// @Param payload body dto.CourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/courses [post]
func (h *CMSHandler) CreateCourse(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.cms.CreateCourse(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update a course
// @Tags CMS
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CourseRequest true "Course"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cms/courses/{id} [put]
func (h *CMSHandler) UpdateCourse(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.cms.UpdateCourse(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// DeleteCourse godoc
// @Summary Delete a course
// @Tags CMS
// @Param id path string true "Course ID"
// @Success 204
// @Security BearerAuth
// @Router /cms/courses/{id} [delete]
func (h *CMSHandler) DeleteCourse(c *gin.Context) {
	if err := h.cms.DeleteCourse(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
