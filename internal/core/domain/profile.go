package domain

import (
	"regexp"
	"slices"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type ProviderKind string

const (
	ProviderAnthropicAPIKey ProviderKind = "anthropic-api-key"
	ProviderAnthropicOAuth  ProviderKind = "anthropic-oauth"
	ProviderCodex           ProviderKind = "codex"
)

var profileIDPattern = regexp.MustCompile(`^([a-z0-9][a-z0-9-]*):([A-Za-z0-9][A-Za-z0-9._-]*)$`)

// Secrets is the credential bundle of a profile. Values are stored in clear.
type Secrets struct {
	APIKey       string `json:"apiKey,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

type Profile struct {
	ID             string                                `json:"id"`
	Provider       ProviderKind                          `json:"provider"`
	DisplayName    string                                `json:"displayName"`
	Enabled        bool                                  `json:"enabled"`
	Secrets        Secrets                               `json:"secrets"`
	AllowedModels  []string                              `json:"allowedModels"`
	ExtraHeaders   *orderedmap.OrderedMap[string, string] `json:"extraHeaders,omitempty"`
	SystemPrompts  []string                              `json:"systemPrompts"`
	TokenExpiresAt *time.Time                            `json:"tokenExpiresAt,omitempty"`
	UpdatedAt      time.Time                             `json:"updatedAt"`
}

// ProfileUpdate is a create or update payload after decoding.
type ProfileUpdate struct {
	ID            string
	Provider      ProviderKind
	DisplayName   string
	Enabled       bool
	APIKey        SecretUpdate
	AccessToken   SecretUpdate
	RefreshToken  SecretUpdate
	ClientID      SecretUpdate
	ClientSecret  SecretUpdate
	AllowedModels []string
	ExtraHeaders  *orderedmap.OrderedMap[string, string]
	SystemPrompts []string
}

// ParseProfileID splits "<provider>:<name>".
func ParseProfileID(id string) (provider ProviderKind, name string, err error) {
	m := profileIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", "", ValidationError("Invalid profile id format.")
	}
	return ProviderKind(m[1]), m[2], nil
}

// DefaultProfileID is the id used when a provider flow has to create a profile.
func DefaultProfileID(kind ProviderKind) string {
	return string(kind) + ":default"
}

// HasPrefixFor reports whether id is namespaced under kind.
func HasPrefixFor(id string, kind ProviderKind) bool {
	return strings.HasPrefix(id, string(kind)+":")
}

// Validate checks identity fields. Content rules live in PromptPolicy.
func (p *Profile) Validate() error {
	prefix, _, err := ParseProfileID(p.ID)
	if err != nil {
		return err
	}
	if p.Provider == "" {
		return ValidationError("Provider is required")
	}
	if prefix != p.Provider {
		return ValidationError("Profile id must be prefixed with its provider")
	}
	return nil
}

// NewProfileFromUpdate builds a fresh profile. An empty provider is taken from the id prefix.
func NewProfileFromUpdate(in ProfileUpdate, now time.Time) (*Profile, error) {
	prefix, _, err := ParseProfileID(in.ID)
	if err != nil {
		return nil, err
	}
	provider := in.Provider
	if provider == "" {
		provider = prefix
	}

	p := &Profile{
		ID:            in.ID,
		Provider:      provider,
		DisplayName:   in.DisplayName,
		Enabled:       in.Enabled,
		AllowedModels: dedupe(in.AllowedModels),
		ExtraHeaders:  cloneHeaders(in.ExtraHeaders),
		SystemPrompts: cloneStrings(in.SystemPrompts),
		Secrets: Secrets{
			APIKey:       in.APIKey.Apply(""),
			AccessToken:  in.AccessToken.Apply(""),
			RefreshToken: in.RefreshToken.Apply(""),
			ClientID:     in.ClientID.Apply(""),
			ClientSecret: in.ClientSecret.Apply(""),
		},
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// MergeProfileSecrets applies an update onto the stored profile. Non-secret
// fields are replaced; secret fields keep the stored value unless the update
// carries a concrete one. Identity fields never change.
func MergeProfileSecrets(existing *Profile, in ProfileUpdate, now time.Time) *Profile {
	merged := existing.Clone()

	merged.DisplayName = in.DisplayName
	merged.Enabled = in.Enabled
	merged.AllowedModels = dedupe(in.AllowedModels)
	merged.ExtraHeaders = cloneHeaders(in.ExtraHeaders)
	merged.SystemPrompts = cloneStrings(in.SystemPrompts)

	merged.Secrets.APIKey = in.APIKey.Apply(existing.Secrets.APIKey)
	merged.Secrets.AccessToken = in.AccessToken.Apply(existing.Secrets.AccessToken)
	merged.Secrets.RefreshToken = in.RefreshToken.Apply(existing.Secrets.RefreshToken)
	merged.Secrets.ClientID = in.ClientID.Apply(existing.Secrets.ClientID)
	merged.Secrets.ClientSecret = in.ClientSecret.Apply(existing.Secrets.ClientSecret)

	if in.AccessToken.State == SecretValue {
		merged.TokenExpiresAt = nil
	}
	merged.UpdatedAt = now
	return merged
}

// SanitizeProfile returns a copy safe to hand to clients. Client ids are not secret.
func SanitizeProfile(p *Profile) *Profile {
	out := p.Clone()
	out.Secrets = Secrets{
		APIKey:       mask(p.Secrets.APIKey),
		AccessToken:  mask(p.Secrets.AccessToken),
		RefreshToken: mask(p.Secrets.RefreshToken),
		ClientID:     p.Secrets.ClientID,
		ClientSecret: mask(p.Secrets.ClientSecret),
	}
	return out
}

// SecretValues lists the non-empty secrets, for scrubbing them out of messages.
func (p *Profile) SecretValues() []string {
	var out []string
	for _, v := range []string{p.Secrets.APIKey, p.Secrets.AccessToken, p.Secrets.RefreshToken, p.Secrets.ClientSecret} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ClearCredentials drops every stored secret, client registration included.
func (p *Profile) ClearCredentials() {
	p.Secrets = Secrets{}
	p.TokenExpiresAt = nil
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.AllowedModels = cloneStrings(p.AllowedModels)
	out.SystemPrompts = cloneStrings(p.SystemPrompts)
	out.ExtraHeaders = cloneHeaders(p.ExtraHeaders)
	if p.TokenExpiresAt != nil {
		t := *p.TokenExpiresAt
		out.TokenExpiresAt = &t
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}

// dedupe keeps the first occurrence of each model and drops blanks.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, m := range in {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func cloneHeaders(in *orderedmap.OrderedMap[string, string]) *orderedmap.OrderedMap[string, string] {
	if in == nil {
		return nil
	}
	out := orderedmap.New[string, string]()
	for pair := in.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}
