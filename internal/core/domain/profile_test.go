package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestParseProfileID(t *testing.T) {
	tests := []struct {
		id       string
		provider ProviderKind
		name     string
		wantErr  bool
	}{
		{id: "codex:main", provider: ProviderCodex, name: "main"},
		{id: "anthropic-oauth:work.1", provider: ProviderAnthropicOAuth, name: "work.1"},
		{id: "anthropic:foo:bar", wantErr: true},
		{id: "codex:", wantErr: true},
		{id: ":main", wantErr: true},
		{id: "codex", wantErr: true},
		{id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			provider, name, err := ParseProfileID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				assert.Equal(t, "Invalid profile id format.", err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestNewProfileFromUpdate(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("derives provider from id", func(t *testing.T) {
		p, err := NewProfileFromUpdate(ProfileUpdate{
			ID:            "codex:main",
			AllowedModels: []string{"gpt-5", "gpt-5", " ", "o3"},
			ClientID:      SetSecret("cid"),
		}, now)
		require.NoError(t, err)
		assert.Equal(t, ProviderCodex, p.Provider)
		assert.Equal(t, []string{"gpt-5", "o3"}, p.AllowedModels)
		assert.Equal(t, "cid", p.Secrets.ClientID)
		assert.Equal(t, []string{}, p.SystemPrompts)
	})

	t.Run("rejects provider mismatch", func(t *testing.T) {
		_, err := NewProfileFromUpdate(ProfileUpdate{ID: "codex:main", Provider: ProviderAnthropicOAuth}, now)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("masked sentinel on create stores nothing", func(t *testing.T) {
		p, err := NewProfileFromUpdate(ProfileUpdate{ID: "codex:main", ClientSecret: KeepSecret()}, now)
		require.NoError(t, err)
		assert.Empty(t, p.Secrets.ClientSecret)
	})
}

func TestMergeProfileSecrets(t *testing.T) {
	now := time.Now()
	expires := now.Add(time.Hour)
	existing := &Profile{
		ID:       "codex:main",
		Provider: ProviderCodex,
		Secrets: Secrets{
			AccessToken:  "at-old",
			RefreshToken: "rt-old",
			ClientID:     "cid",
			ClientSecret: "cs-old",
		},
		AllowedModels:  []string{"gpt-5"},
		TokenExpiresAt: &expires,
	}

	t.Run("masked and absent fields keep stored secrets", func(t *testing.T) {
		merged := MergeProfileSecrets(existing, ProfileUpdate{
			DisplayName:  "Renamed",
			ClientSecret: KeepSecret(),
		}, now)

		assert.Equal(t, "Renamed", merged.DisplayName)
		assert.Equal(t, "cs-old", merged.Secrets.ClientSecret)
		assert.Equal(t, "rt-old", merged.Secrets.RefreshToken)
		assert.Equal(t, "at-old", merged.Secrets.AccessToken)
		assert.Equal(t, []string{}, merged.AllowedModels)
		assert.NotNil(t, merged.TokenExpiresAt)
	})

	t.Run("concrete value replaces", func(t *testing.T) {
		merged := MergeProfileSecrets(existing, ProfileUpdate{AccessToken: SetSecret("at-new")}, now)
		assert.Equal(t, "at-new", merged.Secrets.AccessToken)
		assert.Nil(t, merged.TokenExpiresAt)
	})

	t.Run("explicit empty clears", func(t *testing.T) {
		merged := MergeProfileSecrets(existing, ProfileUpdate{RefreshToken: SetSecret("")}, now)
		assert.Empty(t, merged.Secrets.RefreshToken)
	})

	t.Run("identity and original are untouched", func(t *testing.T) {
		merged := MergeProfileSecrets(existing, ProfileUpdate{ID: "codex:other", Provider: ProviderAnthropicOAuth}, now)
		assert.Equal(t, "codex:main", merged.ID)
		assert.Equal(t, ProviderCodex, merged.Provider)
		assert.Equal(t, []string{"gpt-5"}, existing.AllowedModels)
	})
}

func TestMergeSanitizedRoundTripKeepsSecrets(t *testing.T) {
	existing := &Profile{
		ID:       "anthropic-oauth:work",
		Provider: ProviderAnthropicOAuth,
		Secrets: Secrets{
			AccessToken:  "sk-ant-oat01-abc",
			RefreshToken: "sk-ant-ort01-def",
		},
		SystemPrompts: []string{"be brief"},
	}

	body, err := json.Marshal(SanitizeProfile(existing).Secrets)
	require.NoError(t, err)

	var in struct {
		AccessToken  SecretUpdate `json:"accessToken"`
		RefreshToken SecretUpdate `json:"refreshToken"`
		ClientSecret SecretUpdate `json:"clientSecret"`
	}
	require.NoError(t, json.Unmarshal(body, &in))

	merged := MergeProfileSecrets(existing, ProfileUpdate{
		AccessToken:   in.AccessToken,
		RefreshToken:  in.RefreshToken,
		ClientSecret:  in.ClientSecret,
		SystemPrompts: existing.SystemPrompts,
	}, time.Now())

	assert.Equal(t, existing.Secrets, merged.Secrets)
}

func TestSanitizeProfile(t *testing.T) {
	headers := orderedmap.New[string, string]()
	headers.Set("x-b", "2")
	headers.Set("x-a", "1")

	p := &Profile{
		ID:       "codex:main",
		Provider: ProviderCodex,
		Secrets: Secrets{
			AccessToken:  "at",
			ClientID:     "cid",
			ClientSecret: "cs",
		},
		ExtraHeaders: headers,
	}

	out := SanitizeProfile(p)

	assert.Equal(t, MaskedSecret, out.Secrets.AccessToken)
	assert.Equal(t, MaskedSecret, out.Secrets.ClientSecret)
	assert.Empty(t, out.Secrets.RefreshToken)
	assert.Equal(t, "cid", out.Secrets.ClientID)
	assert.Equal(t, "at", p.Secrets.AccessToken, "original must not be mutated")

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"at"`)
	assert.Contains(t, string(raw), `"extraHeaders":{"x-b":"2","x-a":"1"}`)
}

func TestSecretUpdateUnmarshal(t *testing.T) {
	var in struct {
		A SecretUpdate `json:"a"`
		B SecretUpdate `json:"b"`
		C SecretUpdate `json:"c"`
		D SecretUpdate `json:"d"`
		E SecretUpdate `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"***","b":"","c":"v","d":null}`), &in))

	assert.Equal(t, SecretUnchanged, in.A.State)
	assert.Equal(t, SetSecret(""), in.B)
	assert.Equal(t, SetSecret("v"), in.C)
	assert.Equal(t, SecretUnset, in.D.State)
	assert.Equal(t, SecretUnset, in.E.State)
	assert.Equal(t, "stored", in.A.Apply("stored"))
	assert.Equal(t, "", in.B.Apply("stored"))
}

func TestPromptPolicy(t *testing.T) {
	policy := PromptPolicy{ProviderAnthropicOAuth: true}

	err := policy.Validate(&Profile{Provider: ProviderAnthropicOAuth, SystemPrompts: []string{"  "}})
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, policy.Validate(&Profile{Provider: ProviderAnthropicOAuth, SystemPrompts: []string{"x"}}))
	assert.NoError(t, policy.Validate(&Profile{Provider: ProviderCodex}))
}
