package oauth

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/httpclient"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/security"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/telemetry"
)

// WarningCachedToken is returned with a degraded refresh.
const WarningCachedToken = "refresh_failed_using_cached_access_token"

const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

var errNoRefreshToken = errors.New("no refresh token configured")

var tracer = otel.Tracer("github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/oauth")

// RefreshResult is what a refresh attempt produced. Token is nil when degraded.
type RefreshResult struct {
	Token    *domain.Token
	Rotated  bool
	Degraded bool
	Warning  string
	// Error is the redacted upstream message, set when Degraded.
	Error string
}

type Refresher struct {
	timeout time.Duration
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

func NewRefresher(timeout time.Duration, logger *zap.Logger, metrics *telemetry.Metrics) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{timeout: timeout, logger: logger, metrics: metrics}
}

// Refresh calls the token endpoint for profile. On failure with a cached
// access token it reports degraded success and leaves the profile alone; with
// no cached token it returns an upstream error. Nothing is retried.
func (r *Refresher) Refresh(ctx context.Context, flow *Flow, profile *domain.Profile) (*RefreshResult, error) {
	ctx, span := tracer.Start(ctx, "oauth.refresh", trace.WithAttributes(attribute.String("oauth.provider", flow.Name)))
	defer span.End()

	creds := flow.Policy.Resolve(profile)
	start := time.Now()

	tok, err := r.call(ctx, flow, creds)
	if err == nil {
		span.SetAttributes(attribute.String("oauth.outcome", OutcomeSuccess))
		r.metrics.RecordRefresh(flow.Name, OutcomeSuccess, time.Since(start))
		return &RefreshResult{
			Token:   tok,
			Rotated: tok.RefreshToken != "" && tok.RefreshToken != creds.RefreshToken,
		}, nil
	}

	var secrets []string
	if profile != nil {
		secrets = profile.SecretValues()
	}
	msg := security.RedactValues(upstreamMessage(err), append(secrets, creds.Values()...)...)
	span.SetStatus(codes.Error, msg)

	if profile != nil && profile.Secrets.AccessToken != "" {
		span.SetAttributes(attribute.String("oauth.outcome", OutcomeDegraded))
		r.metrics.RecordRefresh(flow.Name, OutcomeDegraded, time.Since(start))
		r.logger.Warn("token refresh failed, serving cached access token",
			zap.String("provider", flow.Name),
			zap.String("profile_id", profile.ID),
			zap.String("error", msg),
		)
		return &RefreshResult{Degraded: true, Warning: WarningCachedToken, Error: msg}, nil
	}

	span.SetAttributes(attribute.String("oauth.outcome", OutcomeFailed))
	r.metrics.RecordRefresh(flow.Name, OutcomeFailed, time.Since(start))
	r.logger.Error("token refresh failed", zap.String("provider", flow.Name), zap.String("error", msg))
	return nil, domain.UpstreamError(msg, nil)
}

func (r *Refresher) call(ctx context.Context, flow *Flow, creds domain.Credentials) (*domain.Token, error) {
	if creds.RefreshToken == "" {
		return nil, errNoRefreshToken
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return flow.Provider.Refresh(ctx, creds)
}

// Exchange trades an authorization code and scrubs secrets from any failure.
func (r *Refresher) Exchange(ctx context.Context, flow *Flow, code, verifier, state string, creds domain.Credentials) (*domain.Token, error) {
	ctx, span := tracer.Start(ctx, "oauth.exchange", trace.WithAttributes(attribute.String("oauth.provider", flow.Name)))
	defer span.End()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tok, err := flow.Provider.Exchange(ctx, code, verifier, state, creds)
	r.metrics.RecordExchange(flow.Name, err)
	if err != nil {
		if domain.KindOf(err) == domain.KindValidation {
			return nil, err
		}
		msg := security.RedactValues(upstreamMessage(err), append(creds.Values(), code, verifier)...)
		span.SetStatus(codes.Error, msg)
		return nil, domain.UpstreamError(msg, nil)
	}
	return tok, nil
}

// upstreamMessage prefers the provider's own error text.
func upstreamMessage(err error) string {
	var ue *httpclient.UpstreamError
	if errors.As(err, &ue) {
		if msg := ue.Message(); msg != "" {
			return msg
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "token endpoint timed out"
	}
	return err.Error()
}
