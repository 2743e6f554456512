package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/pkg/middleware/requestid"
	"github.com/noah-isme/medrotation-api/pkg/response"
)

// Recovery turns panics into a 500 envelope and logs the panic value.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Value(c)),
		)
		response.Error(c, fmt.Errorf("panic: %v", recovered))
	})
}
