package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// FavoriteHandler manages program bookmarks of the current user.
type FavoriteHandler struct {
	favorites *service.FavoriteService
}

// NewFavoriteHandler constructs a FavoriteHandler.
func NewFavoriteHandler(favorites *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// List godoc
// @Summary List favorites
// @Tags Favorites
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites [get]
func (h *FavoriteHandler) List(c *gin.Context) {
	favorites, err := h.favorites.List(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, favorites)
}

// Add godoc
// @Summary Add favorite
// @Tags Favorites
// @Produce json
// @Param programId path string true "Program ID"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites/{programId} [post]
func (h *FavoriteHandler) Add(c *gin.Context) {
	status, err := h.favorites.Add(c.Request.Context(), currentUser(c), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, status)
}

// Remove godoc
// @Summary Remove favorite
// @Tags Favorites
// @Param programId path string true "Program ID"
// @Success 204
// @Security BearerAuth
// @Router /favorites/{programId} [delete]
func (h *FavoriteHandler) Remove(c *gin.Context) {
	if err := h.favorites.Remove(c.Request.Context(), currentUser(c), c.Param("programId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Status godoc
// @Summary Favorite status
// @Tags Favorites
// @Produce json
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites/{programId}/status [get]
func (h *FavoriteHandler) Status(c *gin.Context) {
	status, err := h.favorites.Status(c.Request.Context(), currentUser(c), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}
