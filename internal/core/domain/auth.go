package domain

import "time"

// AuthState is the pending authorization kept between redirect and callback.
type AuthState struct {
	State        string       `json:"state"`
	Provider     ProviderKind `json:"provider"`
	CodeVerifier string       `json:"codeVerifier"`
	ProfileID    string       `json:"profileId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Expired reports whether the state is older than ttl at now.
func (s *AuthState) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// Credentials is what the resolution chain produced for one provider call.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
}

// Values lists the non-empty secret values, for scrubbing.
func (c Credentials) Values() []string {
	var out []string
	for _, v := range []string{c.ClientSecret, c.RefreshToken, c.AccessToken} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Token is a successful grant response.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
