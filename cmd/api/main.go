// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lromero-dev/casafin/internal/admin"
	"github.com/lromero-dev/casafin/internal/auth"
	"github.com/lromero-dev/casafin/internal/config"
	"github.com/lromero-dev/casafin/internal/core"
	"github.com/lromero-dev/casafin/internal/health"
	"github.com/lromero-dev/casafin/internal/middleware"
	"github.com/lromero-dev/casafin/internal/server"
	"github.com/lromero-dev/casafin/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	rdb, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	codec, err := auth.NewTokenCodec(cfg.Auth)
	if err != nil {
		return err
	}
	logger.Info("token codec initialized",
		"access_ttl", codec.AccessTTL(),
		"refresh_ttl", codec.RefreshTTL(),
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	refreshStore := auth.NewRefreshTokenStore(
		auth.NewRefreshTokenRepository(db.DB),
		codec,
	)
	denylist := auth.NewRevocationRegistry(
		auth.NewDenylistRepository(db.DB),
		codec,
	)
	lockout := auth.NewLockoutGuard(
		auth.NewLoginAttemptRepository(db.DB),
		cfg.Auth.LockoutMaxAttempts,
		cfg.Auth.LockoutBase,
	)

	authSvc := auth.NewService(codec, refreshStore, denylist, lockout, userSvc)
	authHandler := auth.NewHandler(
		authSvc,
		cfg.App.Environment == "production",
	)

	sweeper := auth.NewSweeper(refreshStore, denylist, cfg.Auth.SweepInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	healthHandler := health.NewHandler(cfg.App.Version, map[string]health.Checker{
		"database": db,
		"redis":    rdb,
	})

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: rdb.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  rdb.Ping,
		Sweeper:    sweeper,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(rdb.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	authenticator := middleware.Authenticator(
		verifierAdapter{authSvc},
		middleware.FromAuthorizationHeader,
		middleware.FromCookie("access_token"),
	)

	loginLimiter := middleware.LoginRateLimiter(
		rdb.Client,
		cfg.RateLimit.LoginRequests,
		cfg.RateLimit.LoginBurst,
	)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, loginLimiter)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r, authenticator)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	sweeper.Stop()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := rdb.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// verifierAdapter narrows the auth service to what the authenticator
// middleware needs.
type verifierAdapter struct {
	svc *auth.Service
}

func (v verifierAdapter) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := v.svc.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &middleware.AccessTokenClaims{
		UserID:       claims.UserID,
		Email:        claims.Email,
		Name:         claims.Name,
		TokenVersion: claims.TokenVersion,
	}, nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
