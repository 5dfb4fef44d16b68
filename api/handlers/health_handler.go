package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vidgrab-go/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	orch *app.Orchestrator
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(orch *app.Orchestrator) *HealthHandler {
	return &HealthHandler{orch: orch}
}

// HealthResponse reports liveness plus the orchestrator's view of the world
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	AuthWatching  bool   `json:"auth_watching"`
	Loading       bool   `json:"loading"`
	AwaitingLogin bool   `json:"awaiting_login"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       "1.0.0",
		AuthWatching:  h.orch.IsRunning(),
		Loading:       h.orch.Loading(),
		AwaitingLogin: h.orch.Pending() != nil,
	})
}

// Ready handles GET /ready. Without an auth subscription a parked download would never resume.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.orch.IsRunning() {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "not subscribed to auth changes"})
}
