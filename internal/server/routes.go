package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/server/middleware"
	v1 "github.com/JadeOpenClawAI/ai-chat-sub001/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.ErrorHandler(s.logger))

	// Public probes
	healthHandler := v1.NewHealthHandler(s.deps.Version, s.deps.Config)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/ready", healthHandler.Ready)

	if s.config.Metrics.Enabled && s.deps.Gatherer != nil {
		s.router.GET(s.config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	oauthHandler := v1.NewOAuthHandler(
		s.deps.OAuth,
		v1.CookieOptions{Codec: s.deps.Cookies, Secure: s.config.Server.CookieSecure},
		s.config.Server.PostLoginRedirect,
		s.logger,
	)

	// Browser redirects cannot carry the admin key.
	browser := s.router.Group("/api/oauth/:provider", limiter.Middleware())
	{
		browser.GET("/authorize", oauthHandler.Authorize)
		browser.GET("/callback", oauthHandler.Callback)
	}

	admin := s.router.Group("/api", middleware.AdminAuth(s.config.Server.APIKeys))
	{
		admin.GET("/oauth", oauthHandler.Providers)
		admin.POST("/oauth/:provider", limiter.Middleware(), oauthHandler.Action)

		profileHandler := v1.NewProfileHandler(s.deps.Profiles)
		admin.GET("/profiles", profileHandler.List)
		admin.POST("/profiles", profileHandler.Create)
		admin.PUT("/profiles/:id", profileHandler.Update)
		admin.DELETE("/profiles/:id", profileHandler.Delete)

		routingHandler := v1.NewRoutingHandler(s.deps.Routing)
		admin.GET("/routing", routingHandler.Get)
		admin.POST("/routing", routingHandler.Set)
	}
}
