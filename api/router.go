package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vidgrab-go/api/handlers"
	"github.com/yourusername/vidgrab-go/api/middleware"
	"github.com/yourusername/vidgrab-go/internal/app"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"github.com/yourusername/vidgrab-go/pkg/logger"
)

// Dependencies are the services the HTTP API exposes
type Dependencies struct {
	Orchestrator *app.Orchestrator
	Repo         domain.DownloadRepository
	Tracker      *app.ProgressTracker
	Sessions     handlers.SessionController
	Navigator    domain.Navigator
	Redirects    handlers.RedirectSource
	Feed         handlers.FeedSource
	Logs         *logger.LoggerAdapter
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logs))
	router.Use(middleware.Recovery(deps.Logs))
	router.Use(middleware.CORS())

	// progress entries are created per request by the download handler
	deps.Orchestrator.OnSettled(deps.Tracker.Release)

	healthHandler := handlers.NewHealthHandler(deps.Orchestrator)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	log := deps.Logs.General()

	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(deps.Orchestrator, deps.Repo, deps.Tracker, deps.Redirects, log)
		progressHandler := handlers.NewProgressWebSocketHandler(deps.Tracker, deps.Repo, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.GET("/:id/progress/ws", progressHandler.HandleWebSocket)
		}

		authHandler := handlers.NewAuthHandler(deps.Sessions, deps.Navigator, deps.Orchestrator, log)
		auth := v1.Group("/auth")
		{
			auth.POST("/signin", authHandler.SignIn)
			auth.POST("/signout", authHandler.SignOut)
			auth.GET("/session", authHandler.Session)
			auth.GET("/return-path", authHandler.ReturnPath)
		}
		v1.POST("/pending/dispatch", authHandler.DispatchPending)

		statusHandler := handlers.NewStatusHandler(deps.Orchestrator, deps.Feed)
		v1.GET("/status", statusHandler.Status)
		v1.GET("/notifications", statusHandler.Notifications)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
