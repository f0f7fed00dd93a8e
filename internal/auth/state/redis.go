package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/ports"
)

const defaultKeyPrefix = "authstate:"

// RedisStore shares pending authorizations between instances. Entries expire
// server-side and are consumed with GETDEL, so two callbacks racing on one
// state cannot both succeed.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisStore) key(state string) string {
	return s.prefix + state
}

func (s *RedisStore) Save(ctx context.Context, entry *domain.AuthState) error {
	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal auth state: %w", err)
	}

	if err := s.client.Set(ctx, s.key(e.State), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save auth state: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, state string) (*domain.AuthState, error) {
	data, err := s.client.GetDel(ctx, s.key(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume auth state: %w", err)
	}

	var e domain.AuthState
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode auth state: %w", err)
	}

	// Redis expiry is the primary guard; this covers clock-skewed or persisted keys.
	if e.Expired(s.now(), s.ttl) {
		return nil, ports.ErrStateNotFound
	}
	return &e, nil
}

var _ ports.AuthStateStore = (*RedisStore)(nil)
