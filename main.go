package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulsehub/channel-pulse/internal/cache"
	"github.com/pulsehub/channel-pulse/internal/catalog"
	"github.com/pulsehub/channel-pulse/internal/config"
	"github.com/pulsehub/channel-pulse/internal/forum"
	"github.com/pulsehub/channel-pulse/internal/inference"
	"github.com/pulsehub/channel-pulse/internal/logging"
	"github.com/pulsehub/channel-pulse/internal/news"
	"github.com/pulsehub/channel-pulse/internal/pipeline"
	"github.com/pulsehub/channel-pulse/internal/ratelimit"
	"github.com/pulsehub/channel-pulse/internal/scheduler"
	"github.com/pulsehub/channel-pulse/internal/server"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	logger := logging.WithComponent("main")
	logger.Info("Starting channel-pulse", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// Shared cache: Redis when configured and reachable, in-memory otherwise.
	// The in-memory store always exists; the scheduler sweeps it.
	memory := cache.NewMemory()
	var store cache.Store = memory
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logging.WithComponent("cache"))
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory cache", "error", err)
		} else {
			store = redisStore
			defer redisStore.Close()
		}
	}

	limiter := ratelimit.New()

	catalogClient := catalog.NewClient(&cfg.Catalog, cfg.Cache, store, logging.WithComponent("catalog"))
	newsClient := news.NewClient(&cfg.News, logging.WithComponent("news"))
	tokens := forum.NewTokenSource(&cfg.Forum, store, logging.WithComponent("forum"))
	forumClient := forum.NewClient(&cfg.Forum, tokens, logging.WithComponent("forum"))

	analyzer, err := inference.NewClient(&cfg.Inference, logging.WithComponent("inference"))
	if err != nil {
		logger.Error("Failed to create inference client", "error", err)
		os.Exit(1)
	}

	orchestrator := pipeline.New(catalogClient, newsClient, forumClient, analyzer,
		limiter, cfg.RateLimit, logging.WithComponent("pipeline"))

	sched := scheduler.New(memory, limiter, logging.WithComponent("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := server.New(cfg, orchestrator, logging.WithComponent("server"))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("HTTP server failed", "error", err)
		os.Exit(1)
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
