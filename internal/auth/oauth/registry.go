package oauth

import (
	"net/http"
	"sort"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/credentials"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/config"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
)

// Flow binds a route name ("anthropic", "codex") to its provider dialect,
// the profile kind it writes and its credential resolution chain.
type Flow struct {
	Name                 string
	Kind                 domain.ProviderKind
	CookiePrefix         string
	DefaultSystemPrompts []string
	Provider             Provider
	Policy               credentials.Policy
}

type Registry struct {
	flows map[string]*Flow
}

func NewRegistry() *Registry {
	return &Registry{flows: make(map[string]*Flow)}
}

// RegistryFromConfig builds one flow per configured provider.
func RegistryFromConfig(cfg config.OAuthConfig, client *http.Client) *Registry {
	r := NewRegistry()
	for name, p := range cfg.Providers {
		r.Register(&Flow{
			Name:                 name,
			Kind:                 domain.ProviderKind(p.Kind),
			CookiePrefix:         p.CookiePrefix,
			DefaultSystemPrompts: p.DefaultSystemPrompts,
			Provider:             NewProvider(name, p, client),
			Policy:               credentials.PolicyFor(p),
		})
	}
	return r
}

func (r *Registry) Register(f *Flow) {
	r.flows[f.Name] = f
}

func (r *Registry) Get(name string) (*Flow, error) {
	f, ok := r.flows[name]
	if !ok {
		return nil, domain.NotFoundError("Unknown provider: " + name)
	}
	return f, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.flows))
	for name := range r.flows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
