package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	facade HealthFacade
}

// NewHealthHandler constructs HealthHandler.
func NewHealthHandler(facade HealthFacade) *HealthHandler {
	return &HealthHandler{facade: facade}
}

// Check handles GET /health.
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.facade.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
