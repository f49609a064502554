// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	check func(ctx context.Context) error
	app   string
}

// NewHealthHandler creates a new health handler. check pings the store.
func NewHealthHandler(app string, check func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{check: check, app: app}
}

// Live handles liveness probe (is the process alive?).
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "app": h.app})
}

// Ready handles readiness probe (can the store be reached?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.check != nil {
		if err := h.check(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"checks": map[string]string{"database": "unhealthy: " + err.Error()},
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{"database": "healthy"},
	})
}
