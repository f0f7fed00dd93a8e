package services

import (
	"context"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
)

type RoutingService struct {
	config *ConfigService
}

func NewRoutingService(config *ConfigService) *RoutingService {
	return &RoutingService{config: config}
}

func (s *RoutingService) Get(ctx context.Context) (domain.Routing, error) {
	agg, err := s.config.Load(ctx)
	if err != nil {
		return domain.Routing{}, err
	}
	return agg.Routing, nil
}

// Set replaces the routing policy. Targets are not required to reference
// existing profiles; dangling ones are skipped at request time.
func (s *RoutingService) Set(ctx context.Context, r domain.Routing) (domain.Routing, error) {
	if err := r.Validate(); err != nil {
		return domain.Routing{}, err
	}
	r = r.Normalize()

	agg, err := s.config.Mutate(ctx, func(agg *domain.Aggregate) error {
		agg.Routing = r
		return nil
	})
	if err != nil {
		return domain.Routing{}, err
	}
	return agg.Routing, nil
}
