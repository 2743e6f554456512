package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/models"
)

// AuditRecorder persists audit rows.
type AuditRecorder interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Audit records one audit row per successful request on routes whose
// services do not write their own trail. The route's :id parameter, when
// present, becomes the resource id.
func Audit(recorder AuditRecorder, log *zap.Logger, action, resource string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
			CreatedAt: time.Now().UTC(),
		}
		if user := CurrentUser(c); user != nil {
			entry.UserID = &user.ID
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		entry.NewValues, _ = json.Marshal(map[string]interface{}{
			"path":      c.FullPath(),
			"method":    c.Request.Method,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
		})

		if err := recorder.Create(c.Request.Context(), entry); err != nil {
			log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
		}
	}
}
