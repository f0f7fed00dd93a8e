package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "test")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, 10*time.Minute, cfg.OAuth.StateTTL)

	anthropic := cfg.OAuth.Providers["anthropic"]
	assert.Equal(t, "anthropic-oauth", anthropic.Kind)
	assert.Equal(t, "json", anthropic.TokenFormat)
	assert.Equal(t, "true", anthropic.ExtraAuthParams["code"])
	assert.NotEmpty(t, anthropic.PublicClientID)

	codex := cfg.OAuth.Providers["codex"]
	assert.Equal(t, "form", codex.TokenFormat)
	assert.True(t, codex.ClientSecretRequired)
	assert.Empty(t, codex.PublicClientID)

	assert.True(t, cfg.PromptPolicy["anthropic-oauth"])
}

func TestLoadConfig_FileAndEnvResolution(t *testing.T) {
	t.Setenv("TEST_COOKIE_SECRET", "cookie-secret-value")
	t.Setenv("TEST_ADMIN_KEY", "admin-key")

	configContent := `
server:
  port: "7000"
  api_keys:
    - "ENV:TEST_ADMIN_KEY"
    - "literal-key"
  cookie_secret: "ENV:TEST_COOKIE_SECRET"
store:
  driver: sqlite
  dsn: "file:test.db"
oauth:
  providers:
    codex:
      client_id_env: "MY_CODEX_ID"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, []string{"admin-key", "literal-key"}, cfg.Server.APIKeys)
	assert.Equal(t, "cookie-secret-value", cfg.Server.CookieSecret)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "MY_CODEX_ID", cfg.OAuth.Providers["codex"].ClientIDEnv)
	// untouched keys keep their defaults
	assert.Equal(t, "https://auth.openai.com/oauth/token", cfg.OAuth.Providers["codex"].TokenURL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store: StoreConfig{Driver: "file", Path: "x.json"},
			OAuth: OAuthConfig{
				StateTTL: time.Minute,
				Providers: map[string]OAuthProviderConfig{
					"codex": {Kind: "codex", AuthURL: "a", TokenURL: "t", TokenFormat: "form", CookiePrefix: "c_"},
				},
			},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Store.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = base()
	p := cfg.OAuth.Providers["codex"]
	p.TokenFormat = "xml"
	cfg.OAuth.Providers["codex"] = p
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.OAuth.StateTTL = 0
	assert.Error(t, cfg.Validate())
}
