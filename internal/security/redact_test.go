package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{"anthropic token", "token sk-ant-ort01-abcdefghij rejected", "sk-ant-ort01-abcdefghij"},
		{"openai key", "key sk-proj-abcdefghijklmnopqrstuvwxyz0123", "sk-proj-abcdefghijklmnopqrstuvwxyz0123"},
		{"bearer", "Authorization: Bearer abc.def-12345678", "abc.def-12345678"},
		{"query param", "GET /cb?code=short1&state=x", "short1"},
		{"form field", "refresh_token=rt-123456&grant_type=refresh_token", "rt-123456"},
		{"long opaque", "id 0123456789012345678901234567890123456789abcd", "0123456789012345678901234567890123456789abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Redact(tt.input)
			assert.NotContains(t, out, tt.leak)
			assert.Contains(t, out, Placeholder)
		})
	}
}

func TestRedactKeepsOrdinaryText(t *testing.T) {
	in := "invalid_grant: Refresh token revoked"
	assert.Equal(t, in, Redact(in))
}

func TestRedactValues(t *testing.T) {
	out := RedactValues("upstream echoed rt-1 and rt-1-long back", "rt-1", "rt-1-long", "", "ab")
	assert.Equal(t, "upstream echoed [REDACTED] and [REDACTED] back", out)
}
