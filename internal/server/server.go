package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/loopline/concierge/internal/config"
	"github.com/loopline/concierge/internal/server/middleware"
	v1 "github.com/loopline/concierge/internal/server/v1"
	"github.com/loopline/concierge/internal/store"
	"github.com/loopline/concierge/internal/store/cache"
	"go.uber.org/zap"
)

const serviceName = "concierge"

type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    *zap.Logger
	completer v1.Completer
	repo      store.Repository
	cache     cache.CacheService
}

func New(cfg *config.Config, logger *zap.Logger, completer v1.Completer, repo store.Repository, cacheSvc cache.CacheService) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.Tracing(serviceName))

	s := &Server{
		router:    engine,
		config:    cfg,
		logger:    logger,
		completer: completer,
		repo:      repo,
		cache:     cacheSvc,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
