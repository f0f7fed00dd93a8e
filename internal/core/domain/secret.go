package domain

import (
	"bytes"
	"encoding/json"
)

// MaskedSecret replaces every non-empty secret in outward views.
const MaskedSecret = "***"

type SecretState uint8

const (
	// SecretUnset means the field was absent from the payload.
	SecretUnset SecretState = iota
	// SecretUnchanged means the client echoed the masked view back.
	SecretUnchanged
	// SecretValue carries a concrete value. An empty value clears the field.
	SecretValue
)

// SecretUpdate is an incoming secret field. The masked sentinel is only ever
// interpreted here, so stored secrets are never compared against it.
type SecretUpdate struct {
	State SecretState
	Value string
}

func SetSecret(v string) SecretUpdate {
	return SecretUpdate{State: SecretValue, Value: v}
}

func KeepSecret() SecretUpdate {
	return SecretUpdate{State: SecretUnchanged}
}

// IsSet reports whether the update carries any instruction at all.
func (u SecretUpdate) IsSet() bool {
	return u.State != SecretUnset
}

// Apply returns the value to store given the currently stored one.
func (u SecretUpdate) Apply(current string) string {
	if u.State == SecretValue {
		return u.Value
	}
	return current
}

func (u *SecretUpdate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*u = SecretUpdate{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == MaskedSecret {
		*u = KeepSecret()
		return nil
	}
	*u = SetSecret(s)
	return nil
}

func (u SecretUpdate) MarshalJSON() ([]byte, error) {
	switch u.State {
	case SecretValue:
		return json.Marshal(u.Value)
	case SecretUnchanged:
		return json.Marshal(MaskedSecret)
	default:
		return []byte("null"), nil
	}
}

// mask renders a stored secret for outward views.
func mask(v string) string {
	if v == "" {
		return ""
	}
	return MaskedSecret
}
