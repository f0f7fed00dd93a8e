package state

import (
	"context"
	"sync"
	"time"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/ports"
)

// DefaultTTL is how long a pending authorization stays redeemable.
const DefaultTTL = 10 * time.Minute

// MemoryStore keeps pending authorizations in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]domain.AuthState
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]domain.AuthState),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save inserts or overwrites the entry for its state and drops anything expired.
func (s *MemoryStore) Save(_ context.Context, entry *domain.AuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if e.Expired(now, s.ttl) {
			delete(s.entries, k)
		}
	}

	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	s.entries[e.State] = e
	return nil
}

// Consume removes the entry before checking its age, so a stale entry is
// gone after the first attempt as well.
func (s *MemoryStore) Consume(_ context.Context, state string) (*domain.AuthState, error) {
	s.mu.Lock()
	e, ok := s.entries[state]
	delete(s.entries, state)
	s.mu.Unlock()

	if !ok || e.Expired(s.now(), s.ttl) {
		return nil, ports.ErrStateNotFound
	}
	return &e, nil
}

// Len reports the number of tracked entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ ports.AuthStateStore = (*MemoryStore)(nil)
