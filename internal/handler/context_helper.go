package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/middleware"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// bindJSON decodes the request body into dst, writing a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// pageParams reads page and limit; malformed values fall back to the defaults.
func pageParams(c *gin.Context) (int, int) {
	page, limit := 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		limit = v
	}
	return models.NormalizePage(page, limit)
}

func optionalQuery(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}
