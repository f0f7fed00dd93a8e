// Package oauth talks to identity providers: authorize URLs, code exchange
// and refresh, plus the degraded-success refresh policy.
package oauth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/pkce"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/config"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/httpclient"
)

// Provider is one identity provider's token endpoint dialect.
type Provider interface {
	// AuthCodeURL builds the redirect to the provider's consent page.
	AuthCodeURL(state, challenge string, creds domain.Credentials) (string, error)
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code, verifier, state string, creds domain.Credentials) (*domain.Token, error)
	// Refresh obtains a new access token with creds.RefreshToken.
	Refresh(ctx context.Context, creds domain.Credentials) (*domain.Token, error)
}

// Settings are the endpoint details shared by every dialect.
type Settings struct {
	Name            string
	AuthURL         string
	TokenURL        string
	RedirectURI     string
	Scopes          []string
	ExtraAuthParams map[string]string
}

func settingsFrom(name string, cfg config.OAuthProviderConfig) Settings {
	return Settings{
		Name:            name,
		AuthURL:         cfg.AuthURL,
		TokenURL:        cfg.TokenURL,
		RedirectURI:     cfg.RedirectURI,
		Scopes:          cfg.Scopes,
		ExtraAuthParams: cfg.ExtraAuthParams,
	}
}

// NewProvider picks the dialect from the configured token format.
func NewProvider(name string, cfg config.OAuthProviderConfig, client *http.Client) Provider {
	s := settingsFrom(name, cfg)
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.TokenFormat == "json" {
		return NewJSONProvider(s, client)
	}
	return NewFormProvider(s, client)
}

func (s Settings) oauth2Config(creds domain.Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.AuthURL,
			TokenURL:  s.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: s.RedirectURI,
		Scopes:      s.Scopes,
	}
}

// authCodeURL is shared by both dialects; only the token calls differ.
func (s Settings) authCodeURL(state, challenge string, creds domain.Credentials) (string, error) {
	if creds.ClientID == "" {
		return "", domain.ValidationError("Missing client id for " + s.Name)
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.MethodS256),
	}
	for k, v := range s.ExtraAuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return s.oauth2Config(creds).AuthCodeURL(state, opts...), nil
}

// splitCode separates a "code#state" value some consoles hand back.
func splitCode(code, state string) (string, string) {
	if i := strings.IndexByte(code, '#'); i >= 0 {
		suffix := code[i+1:]
		code = code[:i]
		if state == "" {
			state = suffix
		}
	}
	return code, state
}

// upstreamErr normalizes failures into *httpclient.UpstreamError where possible
// so callers see the provider's own message.
func upstreamErr(tokenURL string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &httpclient.UpstreamError{StatusCode: status, Body: re.Body, URL: tokenURL}
	}
	return err
}
