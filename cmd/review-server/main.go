package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadnews/newsreview/internal/logging"
	"github.com/leadnews/newsreview/pkg/newsreview/api"
	"github.com/leadnews/newsreview/pkg/newsreview/config"
	"github.com/leadnews/newsreview/pkg/newsreview/scan"
)

func main() {
	configFile := flag.String("config", "", "optional YAML configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "err", err)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.ServerConfig, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.ServerConfig, logger *slog.Logger) error {
	ctx := context.Background()

	rt, err := cfg.BuildService(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer rt.Close()

	if n, err := rt.Service.RefreshDictionary(ctx); err != nil {
		logger.Warn("initial dictionary load failed, will retry on first scan", "err", err)
	} else {
		logger.Info("dictionary loaded", "terms", n)
	}

	scanner := scan.New(rt.Drafts, rt.Service, scan.WithLogger(logger))
	scheduler := NewScheduler(scanner, rt.Service, cfg.ScheduleSpec, cfg.DictionaryRefreshSpec, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           Routes(rt, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("review server starting", "port", cfg.Port, "env", cfg.Environment, "database", cfg.DatabaseType)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exiting")
	return nil
}

// Routes sets up the HTTP routes
func Routes(rt *config.Runtime, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", api.Health)
	if rt.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/api/v1", api.NewReviewHandler(rt.Service, logger).Routes())

	return r
}
