package api

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
)

// ProfileRequest is the create and update payload. Secret fields accept a
// value, an empty string to clear, "***" to keep, or null/absent to keep.
// The provider-prefixed aliases are accepted for older clients; the plain
// field wins when both are sent.
type ProfileRequest struct {
	ID          string `json:"id"`
	Provider    string `json:"provider" binding:"omitempty,max=64"`
	DisplayName string `json:"displayName" binding:"max=200"`
	// Enabled defaults to true when absent.
	Enabled *bool `json:"enabled"`

	APIKey       domain.SecretUpdate `json:"apiKey"`
	AccessToken  domain.SecretUpdate `json:"accessToken"`
	RefreshToken domain.SecretUpdate `json:"refreshToken"`
	ClientID     domain.SecretUpdate `json:"clientId"`
	ClientSecret domain.SecretUpdate `json:"clientSecret"`

	CodexClientID              domain.SecretUpdate `json:"codexClientId"`
	CodexClientSecret          domain.SecretUpdate `json:"codexClientSecret"`
	CodexRefreshToken          domain.SecretUpdate `json:"codexRefreshToken"`
	AnthropicOAuthRefreshToken domain.SecretUpdate `json:"anthropicOAuthRefreshToken"`

	AllowedModels []string                              `json:"allowedModels" binding:"max=500,dive,required"`
	ExtraHeaders  *orderedmap.OrderedMap[string, string] `json:"extraHeaders"`
	SystemPrompts []string                              `json:"systemPrompts" binding:"max=50"`
}

func (r *ProfileRequest) ToUpdate() domain.ProfileUpdate {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return domain.ProfileUpdate{
		ID:            r.ID,
		Provider:      domain.ProviderKind(r.Provider),
		DisplayName:   r.DisplayName,
		Enabled:       enabled,
		APIKey:        r.APIKey,
		AccessToken:   r.AccessToken,
		RefreshToken:  firstSet(r.RefreshToken, r.CodexRefreshToken, r.AnthropicOAuthRefreshToken),
		ClientID:      firstSet(r.ClientID, r.CodexClientID),
		ClientSecret:  firstSet(r.ClientSecret, r.CodexClientSecret),
		AllowedModels: r.AllowedModels,
		ExtraHeaders:  r.ExtraHeaders,
		SystemPrompts: r.SystemPrompts,
	}
}

func firstSet(updates ...domain.SecretUpdate) domain.SecretUpdate {
	for _, u := range updates {
		if u.IsSet() {
			return u
		}
	}
	return domain.SecretUpdate{}
}

// ProfileResponse is the outward view of a profile. Secret fields hold the
// masked sentinel when stored and are omitted when empty.
type ProfileResponse struct {
	ID             string                                `json:"id"`
	Provider       string                                `json:"provider"`
	DisplayName    string                                `json:"displayName"`
	Enabled        bool                                  `json:"enabled"`
	APIKey         string                                `json:"apiKey,omitempty"`
	AccessToken    string                                `json:"accessToken,omitempty"`
	RefreshToken   string                                `json:"refreshToken,omitempty"`
	ClientID       string                                `json:"clientId,omitempty"`
	ClientSecret   string                                `json:"clientSecret,omitempty"`
	AllowedModels  []string                              `json:"allowedModels"`
	ExtraHeaders   *orderedmap.OrderedMap[string, string] `json:"extraHeaders,omitempty"`
	SystemPrompts  []string                              `json:"systemPrompts"`
	TokenExpiresAt *time.Time                            `json:"tokenExpiresAt,omitempty"`
	UpdatedAt      time.Time                             `json:"updatedAt"`
}

// NewProfileResponse renders p. Callers pass an already sanitized profile;
// it is sanitized again so a raw one can never leak.
func NewProfileResponse(p *domain.Profile) ProfileResponse {
	s := domain.SanitizeProfile(p)
	return ProfileResponse{
		ID:             s.ID,
		Provider:       string(s.Provider),
		DisplayName:    s.DisplayName,
		Enabled:        s.Enabled,
		APIKey:         s.Secrets.APIKey,
		AccessToken:    s.Secrets.AccessToken,
		RefreshToken:   s.Secrets.RefreshToken,
		ClientID:       s.Secrets.ClientID,
		ClientSecret:   s.Secrets.ClientSecret,
		AllowedModels:  s.AllowedModels,
		ExtraHeaders:   s.ExtraHeaders,
		SystemPrompts:  s.SystemPrompts,
		TokenExpiresAt: s.TokenExpiresAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type ProfileListResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

func NewProfileListResponse(in []*domain.Profile) ProfileListResponse {
	out := ProfileListResponse{Profiles: make([]ProfileResponse, 0, len(in))}
	for _, p := range in {
		out.Profiles = append(out.Profiles, NewProfileResponse(p))
	}
	return out
}

// DeleteProfileResponse carries the routing policy as repaired by the delete.
type DeleteProfileResponse struct {
	OK      bool           `json:"ok"`
	Routing domain.Routing `json:"routing"`
}
