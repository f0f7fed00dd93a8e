package v1

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/state"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/services"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/security"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/server/middleware"
	"github.com/JadeOpenClawAI/ai-chat-sub001/pkg/api"
)

// CookieOptions control the verifier and profile cookies set on authorize.
type CookieOptions struct {
	Codec  *state.CookieCodec
	Secure bool
}

type OAuthHandler struct {
	service           *services.OAuthService
	cookies           CookieOptions
	postLoginRedirect string
	logger            *zap.Logger
}

func NewOAuthHandler(service *services.OAuthService, cookies CookieOptions, postLoginRedirect string, logger *zap.Logger) *OAuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthHandler{
		service:           service,
		cookies:           cookies,
		postLoginRedirect: postLoginRedirect,
		logger:            logger,
	}
}

// Providers lists the configured OAuth providers.
//
// GET /api/oauth
func (h *OAuthHandler) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, api.OAuthProvidersResponse{Providers: h.service.Providers()})
}

// Authorize starts a login and redirects to the provider. The verifier and
// target profile also travel in signed cookies for the callback.
//
// GET /api/oauth/:provider/authorize?profileId=
func (h *OAuthHandler) Authorize(c *gin.Context) {
	auth, err := h.service.BeginAuthorization(c.Request.Context(), c.Param("provider"), c.Query("profileId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	if h.cookies.Codec != nil {
		maxAge := h.cookies.Codec.MaxAge()
		h.setCookie(c, state.VerifierCookieName(auth.CookiePrefix, auth.State), h.cookies.Codec.Encode(auth.CodeVerifier), maxAge)
		if auth.ProfileID != "" {
			h.setCookie(c, state.ProfileCookieName(auth.CookiePrefix, auth.State), h.cookies.Codec.Encode(auth.ProfileID), maxAge)
		}
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, auth.URL)
}

// Callback completes a login.
//
// GET /api/oauth/:provider/callback?code=&state=
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	st := c.Query("state")

	// cleared whatever the outcome; the request still carries them
	if flow, err := h.service.Flow(provider); err == nil && st != "" {
		h.clearCookies(c, flow.CookiePrefix, st)
	}

	if e := c.Query("error"); e != "" {
		msg := e
		if d := c.Query("error_description"); d != "" {
			msg = e + ": " + d
		}
		_ = c.Error(domain.UpstreamError(security.Redact(msg), nil))
		return
	}

	read := func(name string) (string, bool) {
		v, err := c.Cookie(name)
		return v, err == nil
	}

	profileID, err := h.service.CompleteAuthorization(c.Request.Context(), provider, c.Query("code"), st, read)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if h.postLoginRedirect != "" {
		if target, err := url.Parse(h.postLoginRedirect); err == nil {
			q := target.Query()
			q.Set("provider", provider)
			q.Set("profileId", profileID)
			target.RawQuery = q.Encode()
			c.Redirect(http.StatusFound, target.String())
			return
		}
		h.logger.Warn("invalid post-login redirect", zap.String("url", h.postLoginRedirect))
	}

	c.JSON(http.StatusOK, api.OAuthCallbackResponse{OK: true, Provider: provider, ProfileID: profileID})
}

// Action runs status, refresh, save or revoke against the provider's profile.
//
// POST /api/oauth/:provider
func (h *OAuthHandler) Action(c *gin.Context) {
	provider := c.Param("provider")

	var req api.OAuthActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.OAuthActionResponse{OK: false, Error: "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case api.ActionStatus:
		st, err := h.service.Status(ctx, provider, req.ProfileID)
		if err != nil {
			h.actionError(c, err)
			return
		}
		c.JSON(http.StatusOK, api.OAuthStatusResponse{
			HasClientID:     st.HasClientID,
			HasClientSecret: st.HasClientSecret,
			HasRefreshToken: st.HasRefreshToken,
			HasAccessToken:  st.HasAccessToken,
			Connected:       st.Connected,
			ProfileID:       st.ProfileID,
			ExpiresAt:       st.ExpiresAt,
		})

	case api.ActionRefresh:
		out, err := h.service.Refresh(ctx, provider, req.ProfileID)
		if err != nil {
			h.actionError(c, err)
			return
		}
		c.JSON(http.StatusOK, api.OAuthActionResponse{
			OK:        true,
			Degraded:  out.Degraded,
			Warning:   out.Warning,
			Error:     out.Error,
			ProfileID: out.ProfileID,
			ExpiresAt: out.ExpiresAt,
		})

	case api.ActionSave:
		id, err := h.service.SaveCredentials(ctx, provider, req.ProfileID, services.CredentialUpdate{
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			RefreshToken: req.RefreshToken,
			AccessToken:  req.AccessToken,
		})
		if err != nil {
			h.actionError(c, err)
			return
		}
		c.JSON(http.StatusOK, api.OAuthActionResponse{OK: true, ProfileID: id})

	case api.ActionRevoke:
		id, err := h.service.Revoke(ctx, provider, req.ProfileID)
		if err != nil {
			h.actionError(c, err)
			return
		}
		c.JSON(http.StatusOK, api.OAuthActionResponse{OK: true, ProfileID: id})

	default:
		c.JSON(http.StatusBadRequest, api.OAuthActionResponse{OK: false, Error: api.ErrUnknownAction})
	}
}

// actionError keeps the {ok:false, error} shape. Only the service's safe
// message is echoed.
func (h *OAuthHandler) actionError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := http.StatusText(status)

	var de *domain.Error
	if errors.As(err, &de) {
		status = de.Status()
		msg = middleware.PublicMessage(de)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("oauth action failed",
			zap.String("provider", c.Param("provider")),
			zap.Int("status", status),
			zap.String("error", security.Redact(err.Error())),
		)
	}
	c.JSON(status, api.OAuthActionResponse{OK: false, Error: msg})
}

func (h *OAuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.cookies.Secure, true)
}

func (h *OAuthHandler) clearCookies(c *gin.Context, prefix, st string) {
	h.setCookie(c, state.VerifierCookieName(prefix, st), "", -1)
	h.setCookie(c, state.ProfileCookieName(prefix, st), "", -1)
}
