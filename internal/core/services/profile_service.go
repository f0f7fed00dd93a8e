package services

import (
	"context"
	"time"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
)

type ProfileService struct {
	config *ConfigService
	policy domain.PromptPolicy
	now    func() time.Time
}

func NewProfileService(config *ConfigService, policy domain.PromptPolicy) *ProfileService {
	return &ProfileService{config: config, policy: policy, now: time.Now}
}

// List returns every profile with secrets masked, in stored order.
func (s *ProfileService) List(ctx context.Context) ([]*domain.Profile, error) {
	agg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return sanitizeAll(agg.Profiles), nil
}

func (s *ProfileService) Create(ctx context.Context, in domain.ProfileUpdate) (*domain.Profile, error) {
	p, err := domain.NewProfileFromUpdate(in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.policy.Validate(p); err != nil {
		return nil, err
	}

	_, err = s.config.Mutate(ctx, func(agg *domain.Aggregate) error {
		if _, existing := agg.FindProfile(p.ID); existing != nil {
			return domain.ConflictError("Profile already exists: " + p.ID)
		}
		agg.Profiles = append(agg.Profiles, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return domain.SanitizeProfile(p), nil
}

// Update merges in onto the stored profile. Secrets sent back masked or
// omitted keep their stored values.
func (s *ProfileService) Update(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.Profile, error) {
	if in.ID != "" && in.ID != id {
		return nil, domain.ValidationError("Profile id cannot be changed")
	}

	var merged *domain.Profile
	_, err := s.config.Mutate(ctx, func(agg *domain.Aggregate) error {
		idx, existing := agg.FindProfile(id)
		if existing == nil {
			return domain.NotFoundError("Profile not found: " + id)
		}
		if in.Provider != "" && in.Provider != existing.Provider {
			return domain.ValidationError("Profile provider cannot be changed")
		}

		merged = domain.MergeProfileSecrets(existing, in, s.now().UTC())
		if err := s.policy.Validate(merged); err != nil {
			return err
		}
		agg.Profiles[idx] = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return domain.SanitizeProfile(merged), nil
}

// Delete removes the profile and returns the repaired routing policy.
func (s *ProfileService) Delete(ctx context.Context, id string) (domain.Routing, error) {
	agg, err := s.config.Mutate(ctx, func(agg *domain.Aggregate) error {
		if !agg.RemoveProfile(id) {
			return domain.NotFoundError("Profile not found: " + id)
		}
		return nil
	})
	if err != nil {
		return domain.Routing{}, err
	}
	return agg.Routing, nil
}

func sanitizeAll(in []*domain.Profile) []*domain.Profile {
	out := make([]*domain.Profile, 0, len(in))
	for _, p := range in {
		out = append(out, domain.SanitizeProfile(p))
	}
	return out
}
