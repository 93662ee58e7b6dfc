// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/okvist/manifold/internal/api"
	"github.com/okvist/manifold/internal/mcpserver"
	"github.com/okvist/manifold/internal/repo"
	"github.com/okvist/manifold/internal/sse"
	"github.com/okvist/manifold/internal/status"
	"github.com/okvist/manifold/internal/vcs"
	"github.com/okvist/manifold/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("repo_path", cfg.Repo.Path),
		slog.String("default_format", cfg.Repo.DefaultFormat),
		slog.Bool("git_enabled", cfg.Git.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the repository root and kind subdirectories exist.
	for _, kind := range cfg.Repo.Kinds {
		if err := os.MkdirAll(filepath.Join(cfg.Repo.Path, kind), 0o755); err != nil {
			return fmt.Errorf("create repo dir: %w", err)
		}
	}

	// Version-control notifier, gated on a configured git executable.
	var notifier vcs.Notifier = vcs.Nop{}
	if cfg.Git.Enabled() {
		notifier = vcs.NewGit(cfg.Git.Path, cfg.Repo.Path, logger)
	}

	// Progress-status recorder.
	statusDB, err := status.Open(cfg.Status.Path, logger)
	if err != nil {
		return fmt.Errorf("init status db: %w", err)
	}
	defer statusDB.Close()

	// Record store.
	store, err := repo.NewStore(cfg.Repo.Path,
		repo.WithNotifier(notifier),
		repo.WithReporter(statusDB),
		repo.WithDefaultFormat(cfg.Repo.Format()),
		repo.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	// MCP stdio mode replaces the HTTP server entirely.
	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(store, cfg.Repo.Kinds).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(store, statusDB, cfg.Repo.Kinds, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the repository for external edits and publish them as events.
	g.Go(func() error {
		err := watcher.Watch(gCtx, cfg.Repo.Path, logger, func(op, kind, path string) {
			broker.PublishRecordEvent(op, kind, path)
		})
		if err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
