package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/state"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/config"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/store/file"
	"github.com/JadeOpenClawAI/ai-chat-sub001/pkg/api"
)

const adminKey = "admin-key"

func init() {
	gin.SetMode(gin.TestMode)
}

// tokenServer answers like a JSON token endpoint. Refresh succeeds only for
// the refresh token "good-rt".
func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case body["grant_type"] == "authorization_code" && body["code_verifier"] != "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "sk-ant-oat01-fresh", "refresh_token": "good-rt", "expires_in": 3600,
			})
		case body["grant_type"] == "refresh_token" && body["refresh_token"] == "good-rt":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "sk-ant-oat01-refreshed", "expires_in": 3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "invalid_grant", "error_description": "Refresh token " + body["refresh_token"] + " revoked",
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	t       *testing.T
	handler http.Handler
	states  *state.MemoryStore
}

func testConfig(tokenURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:         "0",
			Env:          "test",
			APIKeys:      []string{adminKey},
			CookieSecret: "test-cookie-secret",
		},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		OAuth: config.OAuthConfig{
			StateTTL:       10 * time.Minute,
			RefreshTimeout: 5 * time.Second,
			Providers: map[string]config.OAuthProviderConfig{
				"anthropic": {
					Kind:                 "anthropic-oauth",
					AuthURL:              "https://claude.example/oauth/authorize",
					TokenURL:             tokenURL,
					RedirectURI:          "https://console.example/oauth/code/callback",
					Scopes:               []string{"user:inference"},
					ExtraAuthParams:      map[string]string{"code": "true"},
					TokenFormat:          "json",
					PublicClientID:       "public-client",
					CookiePrefix:         "anthropic_oauth_",
					DefaultSystemPrompts: []string{"system prompt"},
				},
			},
		},
		PromptPolicy: map[string]bool{"anthropic-oauth": true},
	}
}

// newHarness builds one service instance over the store in dir. Two
// harnesses on the same dir behave like two replicas.
func newHarness(t *testing.T, dir, tokenURL string) *harness {
	t.Helper()
	cfg := testConfig(tokenURL)

	repo, err := file.NewRepository(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	states := state.NewMemoryStore(cfg.OAuth.StateTTL)

	deps, err := BuildDeps(cfg, Backends{
		Repository: repo,
		States:     states,
		HTTPClient: http.DefaultClient,
		Registry:   prometheus.NewRegistry(),
		Version:    "v1.2.3",
	}, zap.NewNop())
	require.NoError(t, err)

	return &harness{t: t, handler: New(cfg, zap.NewNop(), deps).Handler(), states: states}
}

func (h *harness) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminKey)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	w := h.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "v1.2.3")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = h.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireKey(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileLifecycle(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	w := h.do(http.MethodPost, "/api/profiles", map[string]any{"id": "anthropic:foo:bar"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[map[string]any](t, w)
	assert.Equal(t, "Invalid profile id format.", problem["detail"])

	w = h.do(http.MethodPost, "/api/profiles", map[string]any{
		"id":                "codex:default",
		"displayName":       "Codex",
		"codexClientSecret": "original-secret",
		"codexClientId":     "client-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[api.ProfileResponse](t, w)
	assert.Equal(t, domain.MaskedSecret, created.ClientSecret)
	assert.Equal(t, "client-1", created.ClientID)
	assert.NotContains(t, w.Body.String(), "original-secret")

	w = h.do(http.MethodPost, "/api/profiles", map[string]any{"id": "codex:default"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// echo the masked view back with a new display name
	w = h.do(http.MethodPut, "/api/profiles/codex:default", map[string]any{
		"displayName":       "Codex (renamed)",
		"codexClientSecret": domain.MaskedSecret,
		"codexClientId":     "client-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[api.ProfileResponse](t, w)
	assert.Equal(t, "Codex (renamed)", updated.DisplayName)
	assert.Equal(t, domain.MaskedSecret, updated.ClientSecret)

	w = h.do(http.MethodPost, "/api/oauth/codex", map[string]any{"action": "status"})
	assert.Equal(t, http.StatusNotFound, w.Code, "codex is not a configured oauth provider here")

	w = h.do(http.MethodPut, "/api/profiles/codex:ghost", map[string]any{"displayName": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/api/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[api.ProfileListResponse](t, w)
	require.Len(t, list.Profiles, 1)
	assert.NotContains(t, w.Body.String(), "original-secret")
}

func TestPromptPolicyRejected(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	w := h.do(http.MethodPost, "/api/profiles", map[string]any{"id": "anthropic-oauth:work"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/profiles", map[string]any{"id": "anthropic-oauth:work", "systemPrompts": []string{"hi"}})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRoutingAndDeleteReassignment(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	for _, id := range []string{"codex:a", "codex:b"} {
		w := h.do(http.MethodPost, "/api/profiles", map[string]any{"id": id})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := h.do(http.MethodPost, "/api/routing", map[string]any{
		"primary":     map[string]string{"profileId": "codex:a", "model": "gpt-5"},
		"fallbacks":   []map[string]string{{"profileId": "codex:b", "model": "gpt-5"}, {"profileId": "codex:a", "model": "gpt-5-mini"}},
		"maxAttempts": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	routing := decode[api.RoutingResponse](t, w)
	assert.Equal(t, 1, routing.Routing.MaxAttempts)
	assert.Len(t, routing.Attempts, 1)

	w = h.do(http.MethodDelete, "/api/profiles/codex:a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	deleted := decode[api.DeleteProfileResponse](t, w)
	require.NotNil(t, deleted.Routing.Primary)
	assert.Equal(t, "codex:b", deleted.Routing.Primary.ProfileID)
	assert.Equal(t, "gpt-5", deleted.Routing.Primary.Model)
	assert.Equal(t, []domain.RouteTarget{{ProfileID: "codex:b", Model: "gpt-5"}}, deleted.Routing.Fallbacks)

	w = h.do(http.MethodGet, "/api/routing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, deleted.Routing, decode[api.RoutingResponse](t, w).Routing)
}

func TestRoutingRejectsTooManyFallbacks(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	fallbacks := make([]map[string]string, 21)
	for i := range fallbacks {
		fallbacks[i] = map[string]string{"profileId": "codex:a"}
	}
	w := h.do(http.MethodPost, "/api/routing", map[string]any{"fallbacks": fallbacks})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "fallbacks")
}

func authorize(t *testing.T, h *harness, query string) (*url.URL, []*http.Cookie) {
	t.Helper()
	w := h.do(http.MethodGet, "/api/oauth/anthropic/authorize"+query, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return loc, w.Result().Cookies()
}

func TestAuthorizeRedirectAndCookies(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	loc, cookies := authorize(t, h, "?profileId=anthropic-oauth:work")
	q := loc.Query()
	assert.Equal(t, "claude.example", loc.Host)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "public-client", q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "true", q.Get("code"))
	assert.NotEmpty(t, q.Get("state"))

	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.True(t, strings.HasPrefix(c.Name, "anthropic_oauth_"))
		assert.True(t, strings.HasSuffix(c.Name, q.Get("state")))
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, 600, c.MaxAge)
	}

	_, cookies = authorize(t, h, "?profileId=codex:elsewhere")
	assert.Len(t, cookies, 1, "a foreign profile id is ignored")
}

func TestCallbackCompletesLogin(t *testing.T) {
	tokens := tokenServer(t)
	h := newHarness(t, t.TempDir(), tokens.URL)

	loc, _ := authorize(t, h, "")
	st := loc.Query().Get("state")

	w := h.do(http.MethodGet, "/api/oauth/anthropic/callback?code=the-code&state="+st, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[api.OAuthCallbackResponse](t, w)
	assert.True(t, out.OK)
	assert.Equal(t, "anthropic-oauth:default", out.ProfileID)

	// the state is single use
	w = h.do(http.MethodGet, "/api/oauth/anthropic/callback?code=the-code&state="+st, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/oauth/anthropic", map[string]any{"action": "status"})
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[api.OAuthStatusResponse](t, w)
	assert.True(t, status.Connected)
	assert.True(t, status.HasRefreshToken)
	assert.True(t, status.HasClientID)
	assert.False(t, status.HasClientSecret)
}

func TestCallbackOnAnotherReplicaUsesCookies(t *testing.T) {
	tokens := tokenServer(t)
	dir := t.TempDir()
	first := newHarness(t, dir, tokens.URL)
	second := newHarness(t, dir, tokens.URL)

	loc, cookies := authorize(t, first, "?profileId=anthropic-oauth:laptop")
	st := loc.Query().Get("state")

	w := second.do(http.MethodGet, "/api/oauth/anthropic/callback?code=the-code&state="+st, nil, cookies...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "anthropic-oauth:laptop", decode[api.OAuthCallbackResponse](t, w).ProfileID)

	cleared := 0
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)
}

func TestCallbackWithoutStateOrCookies(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	w := h.do(http.MethodGet, "/api/oauth/anthropic/callback?code=c&state=forged", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired authorization state")
}

func TestRefreshActions(t *testing.T) {
	tokens := tokenServer(t)
	h := newHarness(t, t.TempDir(), tokens.URL)

	create := func(id, access, refresh string) {
		w := h.do(http.MethodPost, "/api/profiles", map[string]any{
			"id": id, "systemPrompts": []string{"p"}, "accessToken": access, "refreshToken": refresh,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	t.Run("success", func(t *testing.T) {
		create("anthropic-oauth:ok", "old-access", "good-rt")
		w := h.do(http.MethodPost, "/api/oauth/anthropic", map[string]any{"action": "refresh", "profileId": "anthropic-oauth:ok"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		out := decode[api.OAuthActionResponse](t, w)
		assert.True(t, out.OK)
		assert.False(t, out.Degraded)
		assert.NotNil(t, out.ExpiresAt)
	})

	t.Run("degraded", func(t *testing.T) {
		create("anthropic-oauth:cached", "abc123", "revoked-rt")
		w := h.do(http.MethodPost, "/api/oauth/anthropic", map[string]any{"action": "refresh", "profileId": "anthropic-oauth:cached"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		out := decode[api.OAuthActionResponse](t, w)
		assert.True(t, out.OK)
		assert.True(t, out.Degraded)
		assert.Equal(t, "refresh_failed_using_cached_access_token", out.Warning)
		assert.NotEmpty(t, out.Error)
		assert.NotContains(t, w.Body.String(), "revoked-rt")
	})

	t.Run("failure", func(t *testing.T) {
		create("anthropic-oauth:empty", "", "revoked-rt")
		w := h.do(http.MethodPost, "/api/oauth/anthropic", map[string]any{"action": "refresh", "profileId": "anthropic-oauth:empty"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		out := decode[api.OAuthActionResponse](t, w)
		assert.False(t, out.OK)
		assert.NotEmpty(t, out.Error)
		assert.NotContains(t, w.Body.String(), "revoked-rt")
	})
}

func TestSaveRevokeAndUnknownAction(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	w := h.do(http.MethodPost, "/api/oauth/anthropic", map[string]any{"action": "save", "clientId": "my-client"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "anthropic-oauth:default", decode[api.OAuthActionResponse](t, w).ProfileID)

	w = h.do(http.MethodPost, "/api/oauth/anthropic", map[string]any{"action": "revoke"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[api.OAuthActionResponse](t, w).OK)

	w = h.do(http.MethodPost, "/api/oauth/anthropic", map[string]any{"action": "explode"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decode[api.OAuthActionResponse](t, w)
	assert.False(t, out.OK)
	assert.Equal(t, "Unknown action", out.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, t.TempDir(), "http://unused")

	h.do(http.MethodPost, "/api/profiles", map[string]any{"id": "codex:a"})

	w := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth_config_writes_total")
}
