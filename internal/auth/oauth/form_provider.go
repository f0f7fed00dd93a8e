package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
)

// FormProvider uses golang.org/x/oauth2, which posts form-encoded requests.
type FormProvider struct {
	settings Settings
	client   *http.Client
}

func NewFormProvider(s Settings, client *http.Client) *FormProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &FormProvider{settings: s, client: client}
}

func (p *FormProvider) AuthCodeURL(state, challenge string, creds domain.Credentials) (string, error) {
	return p.settings.authCodeURL(state, challenge, creds)
}

func (p *FormProvider) Exchange(ctx context.Context, code, verifier, state string, creds domain.Credentials) (*domain.Token, error) {
	code, _ = splitCode(code, state)
	if code == "" {
		return nil, domain.ValidationError("Missing authorization code")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.settings.oauth2Config(creds).Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, upstreamErr(p.settings.TokenURL, err)
	}
	return fromOAuth2(tok), nil
}

// Refresh runs a refresh_token grant. x/oauth2 carries the old refresh token
// over when the response omits one, so callers compare to detect rotation.
func (p *FormProvider) Refresh(ctx context.Context, creds domain.Credentials) (*domain.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	src := p.settings.oauth2Config(creds).TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, upstreamErr(p.settings.TokenURL, err)
	}
	return fromOAuth2(tok), nil
}

func fromOAuth2(tok *oauth2.Token) *domain.Token {
	return &domain.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}
