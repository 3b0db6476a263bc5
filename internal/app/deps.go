package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/views"
)

const loginLimiterTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background media deletions.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (handlers.Dependencies, func(context.Context) error, error) {
	tokens, err := auth.NewTokenService(cfg.Tokens)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	store, err := media.NewS3Store(ctx, cfg.ObjectStore, media.NewFFprobe(cfg.FFprobePath, cfg.FFprobeTimeout), m)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure media store: %w", err)
	}
	janitor := media.NewJanitor(store, media.JanitorConfig{
		QueueSize: cfg.MediaJanitor.QueueSize,
		Workers:   cfg.MediaJanitor.Workers,
	}, logger)

	accounts := repositories.NewPostgresAccountRepository(pool)

	deps := handlers.Dependencies{
		Accounts:      accounts,
		Sessions:      auth.NewManager(tokens, repositories.NewPostgresSessionStore(pool), accounts),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Views:         views.NewComposer(pool),
		Tokens:        tokens,
		AccountByID:   accounts,
		DB:            pool,
		Uploads: handlers.Uploader{
			Media:    store,
			Cleaner:  janitor,
			Dir:      cfg.UploadDir,
			MaxBytes: cfg.MaxUploadBytes,
		},
		Cookies:    handlers.NewCookieWriter(cfg.Cookies),
		BcryptCost: cfg.BcryptCost,
		LoginLimiter: middleware.NewIPRateLimiter(
			cfg.LoginRateLimit.Requests,
			cfg.LoginRateLimit.Window,
			cfg.LoginRateLimit.Burst,
			loginLimiterTTL,
		),
		Metrics: m.Handler(),
	}
	return deps, janitor.Shutdown, nil
}
