// Package security scrubs credentials out of text that leaves the process.
package security

import (
	"regexp"
	"sort"
	"strings"
)

// Placeholder replaces anything that looks like a credential.
const Placeholder = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	// Anthropic keys and OAuth tokens: sk-ant-...
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{8,}`),
	// OpenAI keys: sk-...
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)Bearer\s+[a-zA-Z0-9._~+/=-]{8,}`),
	// key=, token=, code=, secret= in query strings and form bodies
	regexp.MustCompile(`(?i)((?:api_?key|access_token|refresh_token|id_token|client_secret|code|code_verifier|key)=)[^&\s"]+`),
	// JWTs
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]{8,}\.[a-zA-Z0-9_-]{8,}\.[a-zA-Z0-9_-]{8,}`),
	// Generic long opaque strings
	regexp.MustCompile(`[a-zA-Z0-9_-]{40,}`),
}

// Redact replaces credential-shaped substrings.
func Redact(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		if pattern.NumSubexp() > 0 {
			result = pattern.ReplaceAllString(result, "${1}"+Placeholder)
			continue
		}
		result = pattern.ReplaceAllString(result, Placeholder)
	}
	return result
}

// RedactValues replaces every occurrence of the given secrets, then applies Redact.
// Longer values go first so a secret containing another is removed whole.
func RedactValues(s string, secrets ...string) string {
	values := make([]string, 0, len(secrets))
	for _, v := range secrets {
		if len(v) >= 4 {
			values = append(values, v)
		}
	}
	sort.Slice(values, func(i, j int) bool { return len(values[i]) > len(values[j]) })

	for _, v := range values {
		s = strings.ReplaceAll(s, v, Placeholder)
	}
	return Redact(s)
}
