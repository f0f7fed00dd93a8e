package server

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/oauth"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/pkce"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/state"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/config"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/ports"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/services"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/telemetry"
)

// Backends are the process-wide resources the services are built on.
type Backends struct {
	Repository ports.ConfigRepository
	States     ports.AuthStateStore
	// HTTPClient is used for token endpoint calls.
	HTTPClient *http.Client
	// Registry receives the service metrics; nil disables them.
	Registry *prometheus.Registry
	Version  string
}

// BuildDeps wires the services from configuration.
func BuildDeps(cfg *config.Config, b Backends, logger *zap.Logger) (Deps, error) {
	if b.Repository == nil || b.States == nil {
		return Deps{}, errors.New("repository and state store are required")
	}
	if cfg.Server.CookieSecret == "" {
		return Deps{}, errors.New("server.cookie_secret is required")
	}

	var (
		metrics  *telemetry.Metrics
		gatherer prometheus.Gatherer
	)
	if b.Registry != nil {
		metrics = telemetry.NewMetrics(b.Registry)
		gatherer = b.Registry
	}

	policy := make(domain.PromptPolicy, len(cfg.PromptPolicy))
	for kind, required := range cfg.PromptPolicy {
		policy[domain.ProviderKind(kind)] = required
	}

	configService := services.NewConfigService(b.Repository, metrics)
	codec := state.NewCookieCodec([]byte(cfg.Server.CookieSecret), cfg.OAuth.StateTTL)

	oauthService := services.NewOAuthService(services.OAuthServiceOptions{
		Config:    configService,
		Registry:  oauth.RegistryFromConfig(cfg.OAuth, b.HTTPClient),
		Refresher: oauth.NewRefresher(cfg.OAuth.RefreshTimeout, logger, metrics),
		States:    b.States,
		Recoverer: state.NewRecoverer(b.States, codec),
		Policy:    policy,
		PKCE:      pkce.Generator{},
		Metrics:   metrics,
		Logger:    logger,
	})

	return Deps{
		Config:   configService,
		Profiles: services.NewProfileService(configService, policy),
		Routing:  services.NewRoutingService(configService),
		OAuth:    oauthService,
		Cookies:  codec,
		Gatherer: gatherer,
		Version:  b.Version,
	}, nil
}
