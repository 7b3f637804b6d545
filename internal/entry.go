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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/eniileme/nuclinotion/internal/api"
	"github.com/eniileme/nuclinotion/internal/janitor"
	"github.com/eniileme/nuclinotion/internal/jobservice"
	"github.com/eniileme/nuclinotion/internal/jobstore"
	"github.com/eniileme/nuclinotion/internal/spool"
	"github.com/eniileme/nuclinotion/internal/sse"
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
		slog.String("spool_path", cfg.Spool.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("default_strategy", cfg.Processing.DefaultStrategy),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ttl := time.Duration(cfg.Spool.TTLHours) * time.Hour

	// Initialize the spool (job workspaces + upload staging).
	sp, err := spool.New(cfg.Spool.Path, ttl)
	if err != nil {
		return fmt.Errorf("init spool: %w", err)
	}

	// Initialize the SQLite job store.
	db, err := jobstore.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init job store: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	// Build the job service with status fan-out to SSE.
	svc := jobservice.NewService(sp, db, logger,
		jobservice.WithTTL(ttl),
		jobservice.WithDefaults(cfg.Processing.Options()),
		jobservice.WithNotify(broker.PublishJobStatus))

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Spool.MaxUploadMB)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
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

	// Start the janitor (TTL sweeps + spool reconciliation).
	g.Go(func() error {
		jan := janitor.New(sp, db, logger, time.Hour)
		return jan.Run(gCtx)
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
