package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vidgrab-go/internal/app"
	"github.com/yourusername/vidgrab-go/internal/infrastructure"
)

// StatusResponse is the busy indicator plus the parked request
type StatusResponse struct {
	Loading bool   `json:"loading"`
	Pending string `json:"pending,omitempty"`
}

// FeedSource lists recent notifications
type FeedSource interface {
	Recent() []infrastructure.FeedEntry
}

// StatusHandler reports UI state
type StatusHandler struct {
	orch *app.Orchestrator
	feed FeedSource
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(orch *app.Orchestrator, feed FeedSource) *StatusHandler {
	return &StatusHandler{orch: orch, feed: feed}
}

// Status handles GET /api/v1/status
func (h *StatusHandler) Status(c *gin.Context) {
	response := StatusResponse{Loading: h.orch.Loading()}
	if pending := h.orch.Pending(); pending != nil {
		response.Pending = pending.ID
	}
	c.JSON(http.StatusOK, response)
}

// Notifications handles GET /api/v1/notifications
func (h *StatusHandler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.feed.Recent())
}
