package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/store"
)

// memRepo keeps the encoded document in memory so every Read is a fresh copy.
type memRepo struct {
	mu       sync.Mutex
	data     []byte
	writes   int
	readErr  error
	writeErr error
}

func (r *memRepo) Read(_ context.Context) (*domain.Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	if r.data == nil {
		return domain.NewAggregate(), nil
	}
	return store.DecodeAggregate(r.data)
}

func (r *memRepo) Write(_ context.Context, agg *domain.Aggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	data, err := store.EncodeAggregate(agg)
	if err != nil {
		return err
	}
	r.data = data
	r.writes++
	return nil
}

func (r *memRepo) Ping(context.Context) error { return nil }
func (r *memRepo) Close() error               { return nil }

func (r *memRepo) seed(t *testing.T, agg *domain.Aggregate) {
	t.Helper()
	data, err := store.EncodeAggregate(agg)
	require.NoError(t, err)
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
}

func (r *memRepo) snapshot(t *testing.T) *domain.Aggregate {
	t.Helper()
	agg, err := r.Read(context.Background())
	require.NoError(t, err)
	return agg
}

func (r *memRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// MockProvider implements oauth.Provider for testing
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) AuthCodeURL(state, challenge string, creds domain.Credentials) (string, error) {
	args := m.Called(state, challenge, creds)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) Exchange(ctx context.Context, code, verifier, state string, creds domain.Credentials) (*domain.Token, error) {
	args := m.Called(ctx, code, verifier, state, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Token), args.Error(1)
}

func (m *MockProvider) Refresh(ctx context.Context, creds domain.Credentials) (*domain.Token, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Token), args.Error(1)
}
