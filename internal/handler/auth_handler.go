package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// AuthHandler describes the authenticated caller. Tokens are issued by the
// external identity provider.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Me godoc
// @Summary Current user
// @Description Returns the caller's profile and granted capabilities.
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, err := h.auth.Me(currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, identity)
}
