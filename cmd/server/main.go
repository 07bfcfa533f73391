package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopline/concierge/internal/analytics"
	"github.com/loopline/concierge/internal/config"
	"github.com/loopline/concierge/internal/llm"
	"github.com/loopline/concierge/internal/llm/gemini"
	"github.com/loopline/concierge/internal/llm/openrouter"
	"github.com/loopline/concierge/internal/llm/sdkchat"
	"github.com/loopline/concierge/internal/platform/logger"
	"github.com/loopline/concierge/internal/platform/otel"
	"github.com/loopline/concierge/internal/platform/release"
	"github.com/loopline/concierge/internal/router"
	"github.com/loopline/concierge/internal/server"
	"github.com/loopline/concierge/internal/server/validator"
	"github.com/loopline/concierge/internal/store/cache"
	"github.com/loopline/concierge/internal/store/sqlite"
	"go.uber.org/zap"
)

// geminiModel prefers the per-purpose analysis model. The provider only
// participates in analysis requests, so the override is its effective default.
func geminiModel(cfg *config.Config) string {
	if cfg.Providers.Gemini.AnalysisModel != "" {
		return cfg.Providers.Gemini.AnalysisModel
	}
	return cfg.Providers.Gemini.DefaultModel
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logCfg := logger.DefaultConfig()
	if cfg.Server.Env == "production" {
		logCfg.Format = "json"
	}
	logger.Initialize(logCfg)
	defer logger.Sync()

	log := logger.Get()

	go release.CheckForUpdates()

	shutdownTracer, err := otel.InitTracer("concierge", log, os.Stdout)
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}

	repo, err := sqlite.NewStorage(cfg.Store.DSN)
	if err != nil {
		log.Fatal("failed to open attempt store", zap.Error(err))
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestor := analytics.NewIngestor(log, repo)
	ingestor.Start(ctx)

	var cacheSvc cache.CacheService
	if cfg.Redis.Enabled {
		cacheSvc, err = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-memory cache", zap.Error(err))
			cacheSvc = cache.NewMemoryCache()
		}
	} else {
		cacheSvc = cache.NewMemoryCache()
	}

	providers := []llm.Provider{
		openrouter.New(openrouter.Config{
			APIKey:       cfg.Providers.OpenRouter.APIKey,
			BaseURL:      cfg.Providers.OpenRouter.BaseURL,
			DefaultModel: cfg.Providers.OpenRouter.DefaultModel,
			MaxTokens:    cfg.Providers.OpenRouter.MaxTokens,
			Referer:      cfg.Providers.OpenRouter.Referer,
			Title:        cfg.Providers.OpenRouter.Title,
		}),
		gemini.New(gemini.Config{
			APIKey:       cfg.Providers.Gemini.APIKey,
			BaseURL:      cfg.Providers.Gemini.BaseURL,
			DefaultModel: geminiModel(cfg),
		}),
		sdkchat.New(sdkchat.Config{
			APIKey:       cfg.Providers.SDK.APIKey,
			BaseURL:      cfg.Providers.SDK.BaseURL,
			DefaultModel: cfg.Providers.SDK.DefaultModel,
		}),
	}

	orchestrator := router.New(log, providers, router.WithRecorder(ingestor))

	validator.InitValidator()

	srv := server.New(cfg, log, orchestrator, repo, cacheSvc)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	ingestor.Stop()
	cancel()

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", zap.Error(err))
	}
}
