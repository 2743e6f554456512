package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/pkg/database"
)

type healthProbe interface {
	Status() database.HealthStatus
	Check(ctx context.Context) database.HealthStatus
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	health  healthProbe
	started time.Time
}

// NewMetricsHandler constructs a metrics handler. health may be nil.
func NewMetricsHandler(metrics *service.MetricsService, health healthProbe) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, health: health, started: time.Now()}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Description Always 200 while the process serves requests; reports the last database probe.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "uptimeSeconds": int64(time.Since(h.started).Seconds())}
	if h.health != nil {
		body["database"] = h.health.Status()
	}
	c.JSON(http.StatusOK, body)
}

// Ready godoc
// @Summary Readiness probe
// @Description Pings the database and answers 503 when it is unreachable.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	status := h.health.Check(c.Request.Context())
	if !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "database": status})
}
