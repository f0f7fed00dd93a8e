package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/state"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/config"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/services"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/server/middleware"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/server/validator"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Config   *services.ConfigService
	Profiles *services.ProfileService
	Routing  *services.RoutingService
	OAuth    *services.OAuthService
	Cookies  *state.CookieCodec
	// Gatherer backs the metrics endpoint; nil disables it.
	Gatherer prometheus.Gatherer
	Version  string
}

type Server struct {
	router *gin.Engine
	config *config.Config
	logger *zap.Logger
	deps   Deps
}

func New(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.InitValidator()

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.RequestID())
	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing(cfg.Tracing.ServiceName, "/health", "/ready", cfg.Metrics.Path))
	}
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router: engine,
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the engine with the timeouts used in production.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
