package services

import (
	"context"
	"sync"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/ports"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/telemetry"
)

// ConfigService owns the persisted aggregate. Every change goes through
// Mutate, which serializes read-modify-write cycles within the process.
type ConfigService struct {
	repo    ports.ConfigRepository
	metrics *telemetry.Metrics
	mu      sync.Mutex
}

func NewConfigService(repo ports.ConfigRepository, metrics *telemetry.Metrics) *ConfigService {
	return &ConfigService{repo: repo, metrics: metrics}
}

// Load returns a fresh copy of the stored aggregate.
func (s *ConfigService) Load(ctx context.Context) (*domain.Aggregate, error) {
	agg, err := s.repo.Read(ctx)
	if err != nil {
		return nil, err
	}
	agg.Normalize()
	return agg, nil
}

// Mutate reads the current aggregate, applies fn and writes the result.
// When fn fails nothing is written.
func (s *ConfigService) Mutate(ctx context.Context, fn func(agg *domain.Aggregate) error) (*domain.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(agg); err != nil {
		return nil, err
	}
	agg.Normalize()

	err = s.repo.Write(ctx, agg)
	s.metrics.RecordConfigWrite(err)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *ConfigService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
