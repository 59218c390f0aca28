package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricescout/pricescout/internal/api"
	"github.com/pricescout/pricescout/internal/browser"
	"github.com/pricescout/pricescout/internal/cache"
	"github.com/pricescout/pricescout/internal/config"
	"github.com/pricescout/pricescout/internal/directapi"
	"github.com/pricescout/pricescout/internal/health"
	"github.com/pricescout/pricescout/internal/history"
	"github.com/pricescout/pricescout/internal/orchestrator"
	"github.com/pricescout/pricescout/internal/scraper"
	"github.com/pricescout/pricescout/internal/selector"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newCacheStore(ctx, cfg, logger)

	renderer, err := browser.New(browser.OptionsFromConfig(cfg.Browser), logger)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer renderer.Close()

	var hist *history.Store
	if cfg.Database.Enabled {
		hist, err = history.New(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer hist.Close()
	}

	monitor := health.NewMonitor(health.Options{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		BaseCooldown:     cfg.Breaker.BaseCooldown,
		MaxCooldown:      cfg.Breaker.MaxCooldown,
	}, logger)

	adapter := scraper.NewAdapter(renderer, cfg.Search.RenderTimeout, logger)
	direct := directapi.NewClient(logger)

	searcher := orchestrator.New(direct, adapter, store, monitor, orchestrator.Options{
		Sources:        cfg.Search.Sources,
		GlobalDeadline: cfg.Search.GlobalDeadline,
		DirectTimeout:  cfg.Search.DirectAPITimeout,
		RenderTimeout:  cfg.Search.RenderTimeout,
		RenderSlots:    cfg.Search.RenderSlots,
	}, logger)

	handlers := api.NewHandlers(searcher, selector.New(logger), monitor, store, hist,
		cfg.Search.Sources, cfg.Search.DefaultLocation, logger)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr, "sources", cfg.Search.Sources)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newCacheStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) cache.Store {
	opts := cache.Options{
		FreshFor:    cfg.Cache.FreshFor,
		ExpireAfter: cfg.Cache.ExpireAfter,
	}

	if cfg.Cache.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		return cache.NewRedisStore(client, opts, logger)
	}

	store := cache.NewMemoryStore(opts, logger)
	store.StartPurge(ctx, cfg.Cache.PurgeInterval)
	return store
}
