package server

import (
	"github.com/loopline/concierge/internal/server/middleware"
	v1 "github.com/loopline/concierge/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.ErrorHandler(s.logger))

	// Health Check (Public)
	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	rl := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	api := s.router.Group("/v1")
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	api.Use(rl.Middleware())
	{
		chatHandler := v1.NewChatHandler(s.completer)
		api.POST("/chat", chatHandler.CreateCompletion)

		analyzeHandler := v1.NewAnalyzeHandler(s.completer, s.cache, s.logger)
		api.POST("/analyze", analyzeHandler.Analyze)

		statsHandler := v1.NewStatsHandler(s.repo)
		api.GET("/stats/daily", statsHandler.GetDailyStats)
		api.GET("/requests/:id/attempts", statsHandler.GetRequestTrail)
	}
}
