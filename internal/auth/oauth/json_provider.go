package oauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/httpclient"
)

// JSONProvider posts JSON token requests, as the Anthropic console expects.
type JSONProvider struct {
	settings Settings
	client   httpclient.HTTPClient
	now      func() time.Time
}

func NewJSONProvider(s Settings, client httpclient.HTTPClient) *JSONProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &JSONProvider{settings: s, client: client, now: time.Now}
}

type jsonTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func (p *JSONProvider) AuthCodeURL(state, challenge string, creds domain.Credentials) (string, error) {
	return p.settings.authCodeURL(state, challenge, creds)
}

func (p *JSONProvider) Exchange(ctx context.Context, code, verifier, state string, creds domain.Credentials) (*domain.Token, error) {
	code, state = splitCode(code, state)
	if code == "" {
		return nil, domain.ValidationError("Missing authorization code")
	}

	body := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"state":         state,
		"client_id":     creds.ClientID,
		"redirect_uri":  p.settings.RedirectURI,
		"code_verifier": verifier,
	}
	if creds.ClientSecret != "" {
		body["client_secret"] = creds.ClientSecret
	}
	return p.post(ctx, body)
}

func (p *JSONProvider) Refresh(ctx context.Context, creds domain.Credentials) (*domain.Token, error) {
	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": creds.RefreshToken,
		"client_id":     creds.ClientID,
	}
	if creds.ClientSecret != "" {
		body["client_secret"] = creds.ClientSecret
	}
	return p.post(ctx, body)
}

func (p *JSONProvider) post(ctx context.Context, body map[string]string) (*domain.Token, error) {
	var resp jsonTokenResponse
	if err := httpclient.SendRequest(ctx, p.client, http.MethodPost, p.settings.TokenURL, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.New("token response did not include an access_token")
	}

	tok := &domain.Token{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if resp.ExpiresIn > 0 {
		tok.ExpiresAt = p.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return tok, nil
}
