package state

import (
	"context"
	"errors"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/ports"
)

// Source tells where a recovered authorization came from.
type Source string

const (
	SourceStore  Source = "store"
	SourceCookie Source = "cookie"
	SourceMiss   Source = "miss"
)

// CookieReader returns the raw value of a request cookie.
type CookieReader func(name string) (string, bool)

// Recoverer resolves a callback's state: the shared store first, then the
// signed cookies set at authorize time.
type Recoverer struct {
	store ports.AuthStateStore
	codec *CookieCodec
}

func NewRecoverer(store ports.AuthStateStore, codec *CookieCodec) *Recoverer {
	return &Recoverer{store: store, codec: codec}
}

// Recover consumes the store entry for state. When the store has nothing,
// the verifier and optional profile id are rebuilt from cookies named with
// cookiePrefix. A store failure other than a miss is returned only if the
// cookie path fails too.
func (r *Recoverer) Recover(ctx context.Context, kind domain.ProviderKind, cookiePrefix, state string, read CookieReader) (*domain.AuthState, Source, error) {
	if state == "" {
		return nil, SourceMiss, ports.ErrStateNotFound
	}

	entry, storeErr := r.store.Consume(ctx, state)
	if storeErr == nil {
		return entry, SourceStore, nil
	}

	if r.codec == nil || read == nil {
		return nil, SourceMiss, storeErr
	}

	raw, ok := read(VerifierCookieName(cookiePrefix, state))
	if !ok || raw == "" {
		return nil, SourceMiss, missErr(storeErr)
	}
	verifier, err := r.codec.Decode(raw)
	if err != nil || verifier == "" {
		return nil, SourceMiss, missErr(storeErr)
	}

	out := &domain.AuthState{
		State:        state,
		Provider:     kind,
		CodeVerifier: verifier,
	}
	if raw, ok := read(ProfileCookieName(cookiePrefix, state)); ok && raw != "" {
		if id, err := r.codec.Decode(raw); err == nil {
			out.ProfileID = id
		}
	}
	return out, SourceCookie, nil
}

func missErr(storeErr error) error {
	if errors.Is(storeErr, ports.ErrStateNotFound) {
		return storeErr
	}
	return errors.Join(ports.ErrStateNotFound, storeErr)
}
