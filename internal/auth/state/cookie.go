package state

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrCookieMalformed = errors.New("malformed state cookie")
	ErrCookieSignature = errors.New("state cookie signature mismatch")
	ErrCookieExpired   = errors.New("state cookie expired")
)

// CookieCodec signs the values carried in the fallback cookies so a callback
// landing on another instance can rebuild the pending authorization.
// Wire form: base64url(value) "." unix-seconds "." base64url(hmac-sha256).
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCookieCodec(secret []byte, ttl time.Duration) *CookieCodec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CookieCodec{secret: secret, ttl: ttl, now: time.Now}
}

// MaxAge is the cookie lifetime in seconds.
func (c *CookieCodec) MaxAge() int {
	return int(c.ttl / time.Second)
}

func (c *CookieCodec) Encode(value string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(value)) + "." + strconv.FormatInt(c.now().Unix(), 10)
	return payload + "." + c.sign(payload)
}

func (c *CookieCodec) Decode(raw string) (string, error) {
	idx := strings.LastIndexByte(raw, '.')
	if idx < 0 {
		return "", ErrCookieMalformed
	}
	payload, sig := raw[:idx], raw[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(c.sign(payload))) {
		return "", ErrCookieSignature
	}

	parts := strings.SplitN(payload, ".", 2)
	if len(parts) != 2 {
		return "", ErrCookieMalformed
	}
	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrCookieMalformed
	}
	if c.now().Sub(time.Unix(issued, 0)) > c.ttl {
		return "", ErrCookieExpired
	}

	value, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrCookieMalformed
	}
	return string(value), nil
}

func (c *CookieCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifierCookieName names the cookie holding the PKCE verifier for state.
func VerifierCookieName(prefix, state string) string {
	return prefix + state
}

// ProfileCookieName names the cookie holding the target profile id for state.
func ProfileCookieName(prefix, state string) string {
	return prefix + "profile_" + state
}
