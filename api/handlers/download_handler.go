package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vidgrab-go/internal/app"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// RedirectSource exposes the most recent sign-in redirect
type RedirectSource interface {
	LastRedirect() string
}

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	orch      *app.Orchestrator
	repo      domain.DownloadRepository
	tracker   *app.ProgressTracker
	redirects RedirectSource
	logger    *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(
	orch *app.Orchestrator,
	repo domain.DownloadRepository,
	tracker *app.ProgressTracker,
	redirects RedirectSource,
	logger *zap.Logger,
) *DownloadHandler {
	return &DownloadHandler{
		orch:      orch,
		repo:      repo,
		tracker:   tracker,
		redirects: redirects,
		logger:    logger,
	}
}

// AddDownloadRequest represents a request to download a resource
type AddDownloadRequest struct {
	URL        string            `json:"url" binding:"required,url"`
	Title      string            `json:"title"`
	Mode       string            `json:"mode,omitempty"`
	Trim       *domain.TrimRange `json:"trim,omitempty"`
	ReturnPath string            `json:"return_path,omitempty"`
}

// AddDownloadResponse acknowledges a submitted download
type AddDownloadResponse struct {
	ID         string                `json:"id"`
	Status     domain.DownloadStatus `json:"status"`
	RedirectTo string                `json:"redirect_to,omitempty"`
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var body AddDownloadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := domain.MediaMode(body.Mode)
	if mode == "" {
		mode = domain.MediaVideo
	}
	if !domain.ValidateMediaMode(mode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mode: " + body.Mode})
		return
	}
	if body.Trim != nil && (body.Trim.Start < 0 || body.Trim.End < 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trim offsets must be non-negative"})
		return
	}

	title := body.Title
	if title == "" {
		title = "download"
	}

	req := domain.NewDownloadRequest(body.URL, title, mode, body.Trim, nil)
	req.Progress = h.tracker.Sink(req.ID)
	req.UserAgent = c.Request.UserAgent()
	req.ReturnPath = body.ReturnPath

	deferred, err := h.orch.Submit(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if deferred {
		c.JSON(http.StatusUnauthorized, AddDownloadResponse{
			ID:         req.ID,
			Status:     domain.StatusAwaitingAuth,
			RedirectTo: h.redirects.LastRedirect(),
		})
		return
	}

	c.JSON(http.StatusAccepted, AddDownloadResponse{ID: req.ID, Status: domain.StatusProcessing})
}

// DownloadResponse is a history row with its live progress
type DownloadResponse struct {
	*domain.Download
	Progress *int `json:"progress,omitempty"`
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	id := c.Param("id")

	download, err := h.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, domain.ErrDownloadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
			return
		}
		h.logger.Error("Failed to get download", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := DownloadResponse{Download: download}
	if p, ok := h.tracker.Get(id); ok {
		response.Progress = &p
	}
	c.JSON(http.StatusOK, response)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filters := make(map[string]interface{})
	for _, key := range []string{"status", "media_mode", "strategy", "container"} {
		if value := c.Query(key); value != "" {
			filters[key] = value
		}
	}

	downloads, err := h.repo.FindAll(filters)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, downloads)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
