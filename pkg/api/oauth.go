package api

import (
	"time"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
)

const (
	ActionStatus  = "status"
	ActionRefresh = "refresh"
	ActionSave    = "save"
	ActionRevoke  = "revoke"
)

// ErrUnknownAction is the error text for an unrecognised action.
const ErrUnknownAction = "Unknown action"

// OAuthActionRequest is the body of POST /api/oauth/:provider.
type OAuthActionRequest struct {
	Action       string              `json:"action"`
	ProfileID    string              `json:"profileId"`
	ClientID     domain.SecretUpdate `json:"clientId"`
	ClientSecret domain.SecretUpdate `json:"clientSecret"`
	RefreshToken domain.SecretUpdate `json:"refreshToken"`
	AccessToken  domain.SecretUpdate `json:"accessToken"`
}

type OAuthStatusResponse struct {
	HasClientID     bool       `json:"hasClientId"`
	HasClientSecret bool       `json:"hasClientSecret"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	HasAccessToken  bool       `json:"hasAccessToken"`
	Connected       bool       `json:"connected"`
	ProfileID       string     `json:"profileId,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// OAuthActionResponse is the shape of every non-status action result,
// including failures ({ok:false, error}).
type OAuthActionResponse struct {
	OK        bool       `json:"ok"`
	Degraded  bool       `json:"degraded,omitempty"`
	Warning   string     `json:"warning,omitempty"`
	Error     string     `json:"error,omitempty"`
	ProfileID string     `json:"profileId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type OAuthCallbackResponse struct {
	OK        bool   `json:"ok"`
	Provider  string `json:"provider"`
	ProfileID string `json:"profileId"`
}

type OAuthProvidersResponse struct {
	Providers []string `json:"providers"`
}
