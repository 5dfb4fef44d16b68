package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourusername/vidgrab-go/api"
	"github.com/yourusername/vidgrab-go/api/handlers"
	"github.com/yourusername/vidgrab-go/internal/app"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"github.com/yourusername/vidgrab-go/internal/infrastructure"
	"github.com/yourusername/vidgrab-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: search ./configs, ~/.vidgrab, /etc/vidgrab)")

func main() {
	flag.Parse()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	if err := runServer(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "vidgrab-server: %v\n", err)
		os.Exit(1)
	}
}

func runServer(path string) error {
	config, err := app.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Categorized event logs (download, error) mirror into the console logger
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir(),
	}, log)
	var logAdapter *logger.LoggerAdapter
	if err != nil {
		log.Warn("Category logs disabled", zap.Error(err))
		logAdapter = logger.NewSingleLoggerAdapter(log)
	} else {
		defer multiLog.Close()
		logAdapter = logger.NewLoggerAdapter(multiLog)
	}

	log.Info("Starting vidgrab server",
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("auth_provider", config.Auth.Provider),
		zap.String("storage_driver", config.Storage.Driver))

	if err := createDirectories(config); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := infrastructure.NewSQLiteRepository(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	workspace, err := infrastructure.NewLocalWorkspace(config.Download.IncomingDir())
	if err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}

	store, err := newArtifactStore(ctx, config, log)
	if err != nil {
		return err
	}

	sessions, closeSessions, err := newSessionProvider(ctx, config, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	navigator := infrastructure.NewStoreNavigator(repo, config.Auth.EntryURL, log)
	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	fetcher := infrastructure.NewHTTPFetcher(&config.Download, log)
	prober := infrastructure.NewFFmpegCodecProber(config.Capture.FFmpegBinary, log)

	strategies := map[domain.Strategy]app.Strategy{
		domain.StrategyDirect: app.NewDirectStrategy(fetcher, workspace, store, config.Download.SettleDelay, log),
		domain.StrategyRecord: app.NewTrimPipeline(
			fetcher,
			func() domain.DecodeSurface {
				return infrastructure.NewFFmpegSurface(config.Capture.FFprobeBinary, log)
			},
			infrastructure.NewFFmpegRecorderFactory(config.Capture.FFmpegBinary, log),
			workspace,
			store,
			app.TrimOptionsFromConfig(config.Capture, config.Download),
			log,
		),
	}

	orch := app.NewOrchestrator(
		sessions,
		navigator,
		notifier,
		app.NewPlatformDetector(prober),
		strategies,
		repo,
		config.Notification.FailureMsg,
		multiLog,
		log,
	)
	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	router := api.SetupRouter(api.Dependencies{
		Orchestrator: orch,
		Repo:         repo,
		Tracker:      app.NewProgressTracker(),
		Sessions:     sessions,
		Navigator:    navigator,
		Redirects:    navigator,
		Feed:         notifier,
		Logs:         logAdapter,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serveErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := orch.Stop(); err != nil {
		log.Error("Error stopping orchestrator", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

func newArtifactStore(ctx context.Context, config *domain.Config, log *zap.Logger) (domain.ArtifactStore, error) {
	if config.Storage.Driver == "s3" {
		store, err := infrastructure.NewS3ArtifactStore(ctx, &config.Storage, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 store: %w", err)
		}
		return store, nil
	}
	return infrastructure.NewLocalArtifactStore(config.Download.CompletedDir(), log), nil
}

func newSessionProvider(ctx context.Context, config *domain.Config, log *zap.Logger) (handlers.SessionController, func(), error) {
	if config.Auth.Provider == "redis" {
		provider, err := infrastructure.NewRedisSessionProvider(ctx, &config.Auth, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect session store: %w", err)
		}
		return provider, func() { provider.Close() }, nil
	}
	return infrastructure.NewMemorySessionProvider(), func() {}, nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.IncomingDir(),
		config.Download.LogsDir(),
		filepath.Dir(config.Database.Path),
	}
	if config.Storage.Driver != "s3" {
		dirs = append(dirs, config.Download.CompletedDir())
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
