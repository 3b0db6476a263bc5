package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/httpserver"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/middleware"
)

// Run bootstraps the VidTube backend application. With no arguments it serves HTTP.
func Run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args)
	case "seed":
		return runSeed(ctx, args)
	default:
		return fmt.Errorf("unknown command %q (expected serve, migrate, or seed)", command)
	}
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, level)
	slog.SetDefault(logger)
	return logger, nil
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	m := metrics.New()
	deps, cleanup, err := buildDependencies(ctx, pool, cfg, logger, m)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(logger))
	router.Use(m.Middleware)
	handlers.RegisterRoutes(router, deps)

	srv := httpserver.New(cfg.AppPort, router, cfg.HTTP)

	logger.Info("starting http server", "port", cfg.AppPort)
	runErr := srv.Run(ctx)
	logger.Info("http server stopped, draining media cleanup")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := cleanup(shutdownCtx); err != nil {
		logger.Warn("media cleanup did not drain", "error", err)
	}
	return runErr
}
