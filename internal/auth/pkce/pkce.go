// Package pkce generates RFC 7636 code verifiers, S256 challenges and state tokens.
package pkce

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

const (
	// 32 bytes encode to 43 base64url characters, the RFC 7636 minimum.
	verifierBytes = 32
	stateBytes    = 32

	MethodS256 = "S256"
)

// Codes is one authorization attempt's PKCE material.
type Codes struct {
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Generator draws randomness from Rand. The zero value uses crypto/rand.
type Generator struct {
	Rand io.Reader
}

func (g Generator) reader() io.Reader {
	if g.Rand != nil {
		return g.Rand
	}
	return rand.Reader
}

func (g Generator) random(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.reader(), buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Generate returns a fresh verifier and its S256 challenge.
// A failing entropy source is returned as an error, never a weak value.
func (g Generator) Generate() (*Codes, error) {
	verifier, err := g.random(verifierBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}
	return &Codes{
		CodeVerifier:        verifier,
		CodeChallenge:       Challenge(verifier),
		CodeChallengeMethod: MethodS256,
	}, nil
}

// State returns an opaque 43-character state token.
func (g Generator) State() (string, error) {
	s, err := g.random(stateBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return s, nil
}

// Challenge is BASE64URL(SHA256(verifier)) without padding.
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// Generate uses crypto/rand.
func Generate() (*Codes, error) {
	return Generator{}.Generate()
}

// GenerateState uses crypto/rand.
func GenerateState() (string, error) {
	return Generator{}.State()
}
