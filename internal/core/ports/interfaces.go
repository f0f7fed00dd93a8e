package ports

import (
	"context"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
)

// ConfigRepository persists the configuration aggregate as a whole.
// Read returns a fresh copy on every call; a missing document yields an empty
// aggregate, any other failure a storage error.
type ConfigRepository interface {
	Read(ctx context.Context) (*domain.Aggregate, error)
	Write(ctx context.Context, agg *domain.Aggregate) error
	Ping(ctx context.Context) error
	Close() error
}

// AuthStateStore tracks pending authorizations between redirect and callback.
type AuthStateStore interface {
	Save(ctx context.Context, entry *domain.AuthState) error
	// Consume returns and invalidates the entry. Missing and expired entries
	// both return ErrStateNotFound.
	Consume(ctx context.Context, state string) (*domain.AuthState, error)
}
