package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessChecker is satisfied by the configuration service.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	version string
	store   ReadinessChecker
}

func NewHealthHandler(version string, store ReadinessChecker) *HealthHandler {
	return &HealthHandler{version: version, store: store}
}

// Health is the liveness probe.
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports whether the configuration store can be reached.
//
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
