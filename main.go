package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"usermanager/internal/cache"
	"usermanager/internal/config"
	"usermanager/internal/controllers"
	"usermanager/internal/database"
	"usermanager/internal/middleware"
	"usermanager/internal/repository"
	"usermanager/internal/routes"
	"usermanager/internal/service"
	"usermanager/internal/session"
	"usermanager/internal/storage"
	"usermanager/internal/views"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.DatabaseDriver); err != nil {
		fatal("failed to run migrations", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		fatal("failed to initialise storage", err)
	}

	flash, closeFlash := newFlashStore(cfg)
	defer closeFlash()

	userRepo := repository.NewUserRepository(db)
	userService := service.NewUserService(userRepo, store, logger)

	tmpl, err := views.Templates(userService.ImageURL)
	if err != nil {
		fatal("failed to load templates", err)
	}

	limiter := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	handler := routes.Handler(routes.Deps{
		Users:     controllers.NewUserController(userService, flash, logger),
		Health:    controllers.NewHealthController(db),
		Limiter:   limiter,
		Templates: tmpl,
		Storage:   store,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}
	stop()

	graceCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := server.Shutdown(graceCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}

// newFlashStore prefers Redis and falls back to signed cookies when it is not configured or unreachable.
func newFlashStore(cfg *config.Config) (session.FlashStore, func()) {
	if cfg.RedisURL != "" {
		cacheClient, err := cache.NewRedisCache(cfg.RedisURL)
		if err == nil {
			slog.Info("connected to Redis, storing flash messages there")
			return session.NewRedisStore(cacheClient), func() { cacheClient.Close() }
		}
		slog.Warn("failed to connect to Redis, using cookie flash messages", "error", err)
	}

	cookies, err := session.NewCookieStore(cfg.SessionSecret)
	if err != nil {
		fatal("failed to create flash store", err)
	}
	return cookies, func() {}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
