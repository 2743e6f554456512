package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/ratelimit"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// RateLimit caps requests per caller in a fixed window. Authenticated
// callers are keyed by user id, anonymous ones by client IP.
func RateLimit(limiter ratelimit.Limiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if user := CurrentUser(c); user != nil {
			key = "user:" + user.ID
		}
		if !limiter.Allow(c.Request.Context(), scope+":"+key, limit, window) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, appErrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
