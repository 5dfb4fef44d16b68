package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/vidgrab-go/internal/app"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressMessage is one websocket frame
type ProgressMessage struct {
	ID       string                `json:"id"`
	Progress int                   `json:"progress"`
	Status   domain.DownloadStatus `json:"status,omitempty"`
}

// ProgressWebSocketHandler streams a download's progress until it settles
type ProgressWebSocketHandler struct {
	tracker      *app.ProgressTracker
	repo         domain.DownloadRepository
	logger       *zap.Logger
	pingInterval time.Duration
	pollInterval time.Duration
}

// NewProgressWebSocketHandler creates a new websocket handler
func NewProgressWebSocketHandler(tracker *app.ProgressTracker, repo domain.DownloadRepository, log *zap.Logger) *ProgressWebSocketHandler {
	return &ProgressWebSocketHandler{
		tracker:      tracker,
		repo:         repo,
		logger:       log,
		pingInterval: 30 * time.Second,
		pollInterval: time.Second,
	}
}

// HandleWebSocket handles GET /api/v1/downloads/:id/progress/ws
func (h *ProgressWebSocketHandler) HandleWebSocket(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.repo.FindByID(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.tracker.Subscribe(id)
	defer unsubscribe()

	h.logger.Debug("Progress client connected",
		zap.String("id", id),
		zap.String("remote_addr", c.Request.RemoteAddr))

	last, _ := h.tracker.Get(id)
	if err := conn.WriteJSON(ProgressMessage{ID: id, Progress: last}); err != nil {
		return
	}

	// drain client frames so close and pong are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()

	for {
		select {
		case p := <-updates:
			last = p
			if err := conn.WriteJSON(ProgressMessage{ID: id, Progress: p}); err != nil {
				return
			}

		case <-poll.C:
			download, err := h.repo.FindByID(id)
			if err != nil || !download.IsTerminal() {
				continue
			}
			final := ProgressMessage{ID: id, Progress: last, Status: download.Status}
			if download.Status == domain.StatusCompleted {
				final.Progress = 100
			}
			_ = conn.WriteJSON(final)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(download.Status)))
			return

		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
