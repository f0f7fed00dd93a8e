package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/oauth"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/pkce"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/state"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/ports"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/telemetry"
)

// Authorization is a started authorize redirect.
type Authorization struct {
	URL          string
	State        string
	CodeVerifier string
	// ProfileID is empty when the requested id was absent or not namespaced under the provider.
	ProfileID    string
	CookiePrefix string
}

// ProviderStatus reports which credentials the resolution chain can find.
type ProviderStatus struct {
	ProfileID       string
	HasClientID     bool
	HasClientSecret bool
	HasRefreshToken bool
	HasAccessToken  bool
	Connected       bool
	ExpiresAt       *time.Time
}

// RefreshOutcome is the result of a refresh action that did not fail hard.
type RefreshOutcome struct {
	ProfileID string
	Degraded  bool
	Warning   string
	Error     string
	ExpiresAt *time.Time
}

// CredentialUpdate is the save action payload.
type CredentialUpdate struct {
	ClientID     domain.SecretUpdate
	ClientSecret domain.SecretUpdate
	RefreshToken domain.SecretUpdate
	AccessToken  domain.SecretUpdate
}

type OAuthServiceOptions struct {
	Config    *ConfigService
	Registry  *oauth.Registry
	Refresher *oauth.Refresher
	States    ports.AuthStateStore
	Recoverer *state.Recoverer
	Policy    domain.PromptPolicy
	PKCE      pkce.Generator
	Metrics   *telemetry.Metrics
	Logger    *zap.Logger
}

type OAuthService struct {
	config    *ConfigService
	registry  *oauth.Registry
	refresher *oauth.Refresher
	states    ports.AuthStateStore
	recoverer *state.Recoverer
	policy    domain.PromptPolicy
	pkce      pkce.Generator
	metrics   *telemetry.Metrics
	logger    *zap.Logger
	group     singleflight.Group
	now       func() time.Time
}

func NewOAuthService(opts OAuthServiceOptions) *OAuthService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recoverer := opts.Recoverer
	if recoverer == nil {
		recoverer = state.NewRecoverer(opts.States, nil)
	}
	return &OAuthService{
		config:    opts.Config,
		registry:  opts.Registry,
		refresher: opts.Refresher,
		states:    opts.States,
		recoverer: recoverer,
		policy:    opts.Policy,
		pkce:      opts.PKCE,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *OAuthService) Providers() []string {
	return s.registry.Names()
}

func (s *OAuthService) Flow(provider string) (*oauth.Flow, error) {
	return s.registry.Get(provider)
}

// BeginAuthorization creates the PKCE material and state for one login,
// records it in the state store and returns the provider redirect.
func (s *OAuthService) BeginAuthorization(ctx context.Context, provider, profileID string) (*Authorization, error) {
	flow, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	if !domain.HasPrefixFor(profileID, flow.Kind) {
		profileID = ""
	}

	agg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	creds := flow.Policy.Resolve(agg.ResolveTarget(flow.Kind, profileID))

	codes, err := s.pkce.Generate()
	if err != nil {
		return nil, domain.InternalError("Failed to start authorization", err)
	}
	st, err := s.pkce.State()
	if err != nil {
		return nil, domain.InternalError("Failed to start authorization", err)
	}

	url, err := flow.Provider.AuthCodeURL(st, codes.CodeChallenge, creds)
	if err != nil {
		return nil, err
	}

	entry := &domain.AuthState{
		State:        st,
		Provider:     flow.Kind,
		CodeVerifier: codes.CodeVerifier,
		ProfileID:    profileID,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.states.Save(ctx, entry); err != nil {
		// the cookie channel can still carry the verifier
		s.logger.Warn("failed to save authorization state", zap.String("provider", flow.Name), zap.Error(err))
	}

	return &Authorization{
		URL:          url,
		State:        st,
		CodeVerifier: codes.CodeVerifier,
		ProfileID:    profileID,
		CookiePrefix: flow.CookiePrefix,
	}, nil
}

// CompleteAuthorization finishes a callback: it recovers the pending state,
// exchanges the code and stores the tokens. It returns the profile written.
func (s *OAuthService) CompleteAuthorization(ctx context.Context, provider, code, st string, cookies state.CookieReader) (string, error) {
	flow, err := s.registry.Get(provider)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", domain.ValidationError("Missing authorization code")
	}

	entry, source, err := s.recoverer.Recover(ctx, flow.Kind, flow.CookiePrefix, st, cookies)
	if err == nil && entry.Provider != "" && entry.Provider != flow.Kind {
		err = ports.ErrStateNotFound
		source = state.SourceMiss
	}
	s.metrics.RecordStateConsume(string(source))
	if err != nil {
		if !errors.Is(err, ports.ErrStateNotFound) {
			s.logger.Warn("authorization state lookup failed", zap.String("provider", flow.Name), zap.Error(err))
		}
		return "", domain.ValidationError("Invalid or expired authorization state")
	}

	agg, err := s.config.Load(ctx)
	if err != nil {
		return "", err
	}
	creds := flow.Policy.Resolve(agg.ResolveTarget(flow.Kind, entry.ProfileID))

	tok, err := s.refresher.Exchange(ctx, flow, code, entry.CodeVerifier, entry.State, creds)
	if err != nil {
		return "", err
	}

	var written string
	_, err = s.config.Mutate(ctx, func(agg *domain.Aggregate) error {
		p, err := s.targetOrCreate(agg, flow, entry.ProfileID)
		if err != nil {
			return err
		}
		p.Secrets.AccessToken = tok.AccessToken
		if tok.RefreshToken != "" {
			p.Secrets.RefreshToken = tok.RefreshToken
		}
		p.TokenExpiresAt = expiry(tok)
		p.UpdatedAt = s.now().UTC()
		written = p.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("authorization completed",
		zap.String("provider", flow.Name),
		zap.String("profile_id", written),
		zap.String("state_source", string(source)),
	)
	return written, nil
}

func (s *OAuthService) Status(ctx context.Context, provider, profileID string) (*ProviderStatus, error) {
	flow, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	agg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	target := agg.ResolveTarget(flow.Kind, profileID)
	creds := flow.Policy.Resolve(target)

	out := &ProviderStatus{
		HasClientID:     creds.ClientID != "",
		HasClientSecret: creds.ClientSecret != "",
		HasRefreshToken: creds.RefreshToken != "",
	}
	if target != nil {
		out.ProfileID = target.ID
		out.HasAccessToken = target.Secrets.AccessToken != ""
		out.ExpiresAt = target.TokenExpiresAt
	}
	out.Connected = out.HasAccessToken || out.HasRefreshToken
	return out, nil
}

// errCredentialsChanged aborts a refresh write when a save, revoke or login
// replaced the profile's tokens while the upstream call was in flight.
var errCredentialsChanged = domain.ConflictError("Credentials changed during refresh")

// Refresh runs the token refresher for the target profile and persists a
// successful result. Concurrent refreshes of the same target share one call.
func (s *OAuthService) Refresh(ctx context.Context, provider, profileID string) (*RefreshOutcome, error) {
	flow, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	agg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	target := agg.ResolveTarget(flow.Kind, profileID)
	if target == nil {
		return nil, domain.NotFoundError("No " + string(flow.Kind) + " profile configured")
	}

	v, err, _ := s.group.Do(flow.Name+"|"+target.ID, func() (interface{}, error) {
		return s.refresh(ctx, flow, target)
	})
	if err != nil {
		return nil, err
	}
	return v.(*RefreshOutcome), nil
}

func (s *OAuthService) refresh(ctx context.Context, flow *oauth.Flow, target *domain.Profile) (*RefreshOutcome, error) {
	res, err := s.refresher.Refresh(ctx, flow, target)
	if err != nil {
		return nil, err
	}
	if res.Degraded {
		return &RefreshOutcome{
			ProfileID: target.ID,
			Degraded:  true,
			Warning:   res.Warning,
			Error:     res.Error,
			ExpiresAt: target.TokenExpiresAt,
		}, nil
	}

	used := flow.Policy.Resolve(target).RefreshToken
	var (
		expires *time.Time
		current domain.Profile
	)
	_, err = s.config.Mutate(ctx, func(agg *domain.Aggregate) error {
		_, p := agg.FindProfile(target.ID)
		if p == nil {
			return domain.NotFoundError("Profile not found: " + target.ID)
		}
		if p.Secrets != target.Secrets || flow.Policy.Resolve(p).RefreshToken != used {
			current = *p
			return errCredentialsChanged
		}
		p.Secrets.AccessToken = res.Token.AccessToken
		if res.Rotated {
			p.Secrets.RefreshToken = res.Token.RefreshToken
		}
		p.TokenExpiresAt = expiry(res.Token)
		p.UpdatedAt = s.now().UTC()
		expires = p.TokenExpiresAt
		return nil
	})
	if errors.Is(err, errCredentialsChanged) {
		s.logger.Warn("credentials changed during refresh, discarding new tokens",
			zap.String("provider", flow.Name),
			zap.String("profile_id", target.ID),
		)
		if current.Secrets.AccessToken == "" {
			return nil, err
		}
		return &RefreshOutcome{
			ProfileID: target.ID,
			Degraded:  true,
			Warning:   oauth.WarningCachedToken,
			Error:     errCredentialsChanged.Message,
			ExpiresAt: current.TokenExpiresAt,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &RefreshOutcome{ProfileID: target.ID, ExpiresAt: expires}, nil
}

// SaveCredentials stores client registration or tokens on the target
// profile, creating the provider's profile when none exists.
func (s *OAuthService) SaveCredentials(ctx context.Context, provider, profileID string, in CredentialUpdate) (string, error) {
	flow, err := s.registry.Get(provider)
	if err != nil {
		return "", err
	}

	var written string
	_, err = s.config.Mutate(ctx, func(agg *domain.Aggregate) error {
		p, err := s.targetOrCreate(agg, flow, profileID)
		if err != nil {
			return err
		}
		p.Secrets.ClientID = in.ClientID.Apply(p.Secrets.ClientID)
		p.Secrets.ClientSecret = in.ClientSecret.Apply(p.Secrets.ClientSecret)
		p.Secrets.RefreshToken = in.RefreshToken.Apply(p.Secrets.RefreshToken)
		if in.AccessToken.State == domain.SecretValue {
			p.Secrets.AccessToken = in.AccessToken.Value
			p.TokenExpiresAt = nil
		}
		p.UpdatedAt = s.now().UTC()
		written = p.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return written, nil
}

// Revoke clears every stored credential on the target profile. Revoking a
// provider with no profile is a no-op.
func (s *OAuthService) Revoke(ctx context.Context, provider, profileID string) (string, error) {
	flow, err := s.registry.Get(provider)
	if err != nil {
		return "", err
	}

	var written string
	_, err = s.config.Mutate(ctx, func(agg *domain.Aggregate) error {
		p := agg.ResolveTarget(flow.Kind, profileID)
		if p == nil {
			return nil
		}
		p.ClearCredentials()
		p.UpdatedAt = s.now().UTC()
		written = p.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return written, nil
}

// targetOrCreate returns the profile an action writes to. When the provider
// has none, a profile is appended under the requested id if it is namespaced
// correctly, else under the provider default id.
func (s *OAuthService) targetOrCreate(agg *domain.Aggregate, flow *oauth.Flow, profileID string) (*domain.Profile, error) {
	if p := agg.ResolveTarget(flow.Kind, profileID); p != nil {
		return p, nil
	}

	id := domain.DefaultProfileID(flow.Kind)
	if domain.HasPrefixFor(profileID, flow.Kind) {
		id = profileID
	}
	p, err := domain.NewProfileFromUpdate(domain.ProfileUpdate{
		ID:            id,
		Provider:      flow.Kind,
		DisplayName:   flow.Name,
		Enabled:       true,
		SystemPrompts: flow.DefaultSystemPrompts,
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.policy.Validate(p); err != nil {
		return nil, err
	}
	agg.Profiles = append(agg.Profiles, p)
	return p, nil
}

func expiry(tok *domain.Token) *time.Time {
	if tok == nil || tok.ExpiresAt.IsZero() {
		return nil
	}
	t := tok.ExpiresAt.UTC()
	return &t
}
