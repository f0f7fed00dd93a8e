// Package credentials resolves client credentials and refresh tokens through
// an ordered list of sources, so provider differences are data, not branches.
package credentials

import (
	"os"
	"strings"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/config"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
)

// Source yields a value for a profile, or false when it has none.
type Source interface {
	Name() string
	Lookup(p *domain.Profile) (string, bool)
}

type profileField struct {
	name string
	get  func(*domain.Secrets) string
}

func (s profileField) Name() string { return "profile." + s.name }

func (s profileField) Lookup(p *domain.Profile) (string, bool) {
	if p == nil {
		return "", false
	}
	v := strings.TrimSpace(s.get(&p.Secrets))
	return v, v != ""
}

type envVar string

func (s envVar) Name() string { return "env." + string(s) }

func (s envVar) Lookup(*domain.Profile) (string, bool) {
	if s == "" {
		return "", false
	}
	v := strings.TrimSpace(os.Getenv(string(s)))
	return v, v != ""
}

type static struct {
	name  string
	value string
}

func (s static) Name() string { return s.name }

func (s static) Lookup(*domain.Profile) (string, bool) {
	return s.value, s.value != ""
}

func FromProfile(name string, get func(*domain.Secrets) string) Source {
	return profileField{name: name, get: get}
}

func FromEnv(key string) Source {
	return envVar(key)
}

func Static(name, value string) Source {
	return static{name: name, value: value}
}

// Chain returns the first value any source yields.
type Chain []Source

// Resolve returns the value and the name of the source that supplied it.
func (c Chain) Resolve(p *domain.Profile) (value, source string) {
	for _, s := range c {
		if v, ok := s.Lookup(p); ok {
			return v, s.Name()
		}
	}
	return "", ""
}

// Policy is the resolution order for every credential a provider call needs.
type Policy struct {
	ClientID     Chain
	ClientSecret Chain
	RefreshToken Chain
}

func (pol Policy) Resolve(p *domain.Profile) domain.Credentials {
	clientID, _ := pol.ClientID.Resolve(p)
	clientSecret, _ := pol.ClientSecret.Resolve(p)
	refreshToken, _ := pol.RefreshToken.Resolve(p)

	var access string
	if p != nil {
		access = p.Secrets.AccessToken
	}
	return domain.Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
		AccessToken:  access,
	}
}

// PolicyFor builds the chain from provider configuration: profile first,
// then environment, then the public client id. Providers that require a
// client secret get no public fallback.
func PolicyFor(cfg config.OAuthProviderConfig) Policy {
	clientID := Chain{
		FromProfile("clientId", func(s *domain.Secrets) string { return s.ClientID }),
		FromEnv(cfg.ClientIDEnv),
	}
	if !cfg.ClientSecretRequired && cfg.PublicClientID != "" {
		clientID = append(clientID, Static("public", cfg.PublicClientID))
	}

	var clientSecret Chain
	if cfg.ClientSecretRequired || cfg.ClientSecretEnv != "" {
		clientSecret = Chain{
			FromProfile("clientSecret", func(s *domain.Secrets) string { return s.ClientSecret }),
			FromEnv(cfg.ClientSecretEnv),
		}
	}

	return Policy{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: Chain{
			FromProfile("refreshToken", func(s *domain.Secrets) string { return s.RefreshToken }),
			FromEnv(cfg.RefreshTokenEnv),
		},
	}
}
