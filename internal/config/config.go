package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig      `mapstructure:"server"`
	Log          LogConfig         `mapstructure:"log"`
	Store        StoreConfig       `mapstructure:"store"`
	Redis        RedisConfig       `mapstructure:"redis"`
	RateLimit    RateLimitConfig   `mapstructure:"rate_limit"`
	Tracing      TracingConfig     `mapstructure:"tracing"`
	Metrics      MetricsConfig     `mapstructure:"metrics"`
	OAuth        OAuthConfig       `mapstructure:"oauth"`
	PromptPolicy map[string]bool   `mapstructure:"prompt_policy"`
	UpdateCheck  UpdateCheckConfig `mapstructure:"update_check"`
}

type ServerConfig struct {
	Port    string   `mapstructure:"port"`
	Env     string   `mapstructure:"env"`
	APIKeys []string `mapstructure:"api_keys"`
	// PublicURL is used to build default redirect URIs.
	PublicURL         string        `mapstructure:"public_url"`
	CookieSecret      string        `mapstructure:"cookie_secret"`
	CookieSecure      bool          `mapstructure:"cookie_secure"`
	PostLoginRedirect string        `mapstructure:"post_login_redirect"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

type StoreConfig struct {
	// Driver is "file" or "sqlite".
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Enabled   bool   `mapstructure:"enabled"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type UpdateCheckConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type OAuthConfig struct {
	StateTTL       time.Duration                  `mapstructure:"state_ttl"`
	RefreshTimeout time.Duration                  `mapstructure:"refresh_timeout"`
	Providers      map[string]OAuthProviderConfig `mapstructure:"providers"`
}

// OAuthProviderConfig describes one authorization-code provider. The
// credential fields build the resolution chain: profile, then env, then the
// public client id unless a client secret is required.
type OAuthProviderConfig struct {
	// Kind is the profile provider kind this flow writes to, and the profile id prefix.
	Kind            string            `mapstructure:"kind"`
	AuthURL         string            `mapstructure:"auth_url"`
	TokenURL        string            `mapstructure:"token_url"`
	RedirectURI     string            `mapstructure:"redirect_uri"`
	Scopes          []string          `mapstructure:"scopes"`
	ExtraAuthParams map[string]string `mapstructure:"extra_auth_params"`
	// TokenFormat is "json" or "form".
	TokenFormat          string   `mapstructure:"token_format"`
	PublicClientID       string   `mapstructure:"public_client_id"`
	ClientSecretRequired bool     `mapstructure:"client_secret_required"`
	ClientIDEnv          string   `mapstructure:"client_id_env"`
	ClientSecretEnv      string   `mapstructure:"client_secret_env"`
	RefreshTokenEnv      string   `mapstructure:"refresh_token_env"`
	CookiePrefix         string   `mapstructure:"cookie_prefix"`
	DefaultSystemPrompts []string `mapstructure:"default_system_prompts"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	cfg.Server.CookieSecret = resolveEnv(v, cfg.Server.CookieSecret)
	cfg.Redis.Password = resolveEnv(v, cfg.Redis.Password)
	for i, k := range cfg.Server.APIKeys {
		cfg.Server.APIKeys[i] = resolveEnv(v, k)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cookie_secure", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "data/config.json")
	v.SetDefault("store.dsn", "data/config.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.key_prefix", "authstate:")

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "credential-service")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("oauth.state_ttl", "10m")
	v.SetDefault("oauth.refresh_timeout", "15s")

	v.SetDefault("oauth.providers.anthropic.kind", "anthropic-oauth")
	v.SetDefault("oauth.providers.anthropic.auth_url", "https://claude.ai/oauth/authorize")
	v.SetDefault("oauth.providers.anthropic.token_url", "https://console.anthropic.com/v1/oauth/token")
	v.SetDefault("oauth.providers.anthropic.redirect_uri", "https://console.anthropic.com/oauth/code/callback")
	v.SetDefault("oauth.providers.anthropic.scopes", []string{"org:create_api_key", "user:profile", "user:inference"})
	v.SetDefault("oauth.providers.anthropic.extra_auth_params", map[string]string{"code": "true"})
	v.SetDefault("oauth.providers.anthropic.token_format", "json")
	v.SetDefault("oauth.providers.anthropic.public_client_id", "9d1c250a-e61b-44d9-88ed-5944d1962f5e")
	v.SetDefault("oauth.providers.anthropic.client_id_env", "ANTHROPIC_OAUTH_CLIENT_ID")
	v.SetDefault("oauth.providers.anthropic.refresh_token_env", "ANTHROPIC_OAUTH_REFRESH_TOKEN")
	v.SetDefault("oauth.providers.anthropic.cookie_prefix", "anthropic_oauth_")
	v.SetDefault("oauth.providers.anthropic.default_system_prompts", []string{"You are Claude Code, Anthropic's official CLI for Claude."})

	v.SetDefault("oauth.providers.codex.kind", "codex")
	v.SetDefault("oauth.providers.codex.auth_url", "https://auth.openai.com/oauth/authorize")
	v.SetDefault("oauth.providers.codex.token_url", "https://auth.openai.com/oauth/token")
	v.SetDefault("oauth.providers.codex.redirect_uri", "http://localhost:1455/auth/callback")
	v.SetDefault("oauth.providers.codex.scopes", []string{"openid", "email", "profile", "offline_access"})
	v.SetDefault("oauth.providers.codex.extra_auth_params", map[string]string{
		"prompt":                     "login",
		"id_token_add_organizations": "true",
		"codex_cli_simplified_flow":  "true",
	})
	v.SetDefault("oauth.providers.codex.token_format", "form")
	v.SetDefault("oauth.providers.codex.client_secret_required", true)
	v.SetDefault("oauth.providers.codex.client_id_env", "CODEX_CLIENT_ID")
	v.SetDefault("oauth.providers.codex.client_secret_env", "CODEX_CLIENT_SECRET")
	v.SetDefault("oauth.providers.codex.refresh_token_env", "CODEX_REFRESH_TOKEN")
	v.SetDefault("oauth.providers.codex.cookie_prefix", "codex_oauth_")

	v.SetDefault("prompt_policy", map[string]bool{"anthropic-oauth": true})

	v.SetDefault("update_check.enabled", false)
	v.SetDefault("update_check.url", "")
}

// resolveEnv expands "ENV:NAME" to the named variable.
func resolveEnv(v *viper.Viper, value string) string {
	if !strings.HasPrefix(value, "ENV:") {
		return value
	}
	name := strings.TrimPrefix(value, "ENV:")
	// Check process environment first (explicit override)
	if val := os.Getenv(name); val != "" {
		return val
	}
	return v.GetString(name)
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "file":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file driver")
		}
	case "sqlite":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.OAuth.StateTTL <= 0 {
		return errors.New("oauth.state_ttl must be positive")
	}

	for name, p := range c.OAuth.Providers {
		if p.Kind == "" {
			return fmt.Errorf("oauth.providers.%s.kind is required", name)
		}
		if p.AuthURL == "" || p.TokenURL == "" {
			return fmt.Errorf("oauth.providers.%s needs auth_url and token_url", name)
		}
		if p.TokenFormat != "json" && p.TokenFormat != "form" {
			return fmt.Errorf("oauth.providers.%s.token_format must be json or form", name)
		}
		if p.CookiePrefix == "" {
			return fmt.Errorf("oauth.providers.%s.cookie_prefix is required", name)
		}
	}
	return nil
}
