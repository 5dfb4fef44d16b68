package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vidgrab-go/internal/app"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// SessionController is a session provider that can also change the session
type SessionController interface {
	domain.SessionProvider
	SignIn(ctx context.Context, userID string) error
	SignOut(ctx context.Context) error
}

// AuthHandler handles sign-in state and the parked download
type AuthHandler struct {
	sessions  SessionController
	navigator domain.Navigator
	orch      *app.Orchestrator
	logger    *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions SessionController, navigator domain.Navigator, orch *app.Orchestrator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, navigator: navigator, orch: orch, logger: logger}
}

// SignInRequest represents a sign-in
type SignInRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var body SignInRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessions.SignIn(c.Request.Context(), body.UserID); err != nil {
		h.logger.Error("Failed to sign in", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	returnPath, err := h.navigator.ReturnPath(c.Request.Context())
	if err != nil {
		h.logger.Warn("Failed to read return path", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user_id":       body.UserID,
		"return_path":   returnPath,
	})
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context()); err != nil {
		h.logger.Error("Failed to sign out", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// Session handles GET /api/v1/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// ReturnPath handles GET /api/v1/auth/return-path
func (h *AuthHandler) ReturnPath(c *gin.Context) {
	path, err := h.navigator.ReturnPath(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"return_path": path})
}

// DispatchPending handles POST /api/v1/pending/dispatch
func (h *AuthHandler) DispatchPending(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Request.Context())
	if err != nil || !session.Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
		return
	}

	req, err := h.orch.SubmitPending()
	if err != nil {
		if errors.Is(err, domain.ErrNoPendingDownload) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, domain.ErrOrchestratorStopped) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, AddDownloadResponse{ID: req.ID, Status: domain.StatusProcessing})
}
