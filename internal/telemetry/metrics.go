package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the credential service's Prometheus metrics. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	TokenRefreshTotal   *prometheus.CounterVec
	TokenRefreshSeconds *prometheus.HistogramVec
	TokenExchangeTotal  *prometheus.CounterVec
	StateConsumeTotal   *prometheus.CounterVec
	ConfigWritesTotal   *prometheus.CounterVec
}

// NewMetrics registers every metric on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TokenRefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_refresh_total",
			Help: "Token refresh attempts by provider and outcome (success, degraded, failed).",
		}, []string{"provider", "outcome"}),

		TokenRefreshSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_token_refresh_seconds",
			Help:    "Latency of token endpoint refresh calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),

		TokenExchangeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_code_exchange_total",
			Help: "Authorization code exchanges by provider and result.",
		}, []string{"provider", "result"}),

		StateConsumeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_state_consume_total",
			Help: "Callback state lookups by source (store, cookie, miss).",
		}, []string{"source"}),

		ConfigWritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_config_writes_total",
			Help: "Configuration writes by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordRefresh(provider, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.TokenRefreshTotal.WithLabelValues(provider, outcome).Inc()
	m.TokenRefreshSeconds.WithLabelValues(provider).Observe(took.Seconds())
}

func (m *Metrics) RecordExchange(provider string, err error) {
	if m == nil {
		return
	}
	m.TokenExchangeTotal.WithLabelValues(provider, result(err)).Inc()
}

func (m *Metrics) RecordStateConsume(source string) {
	if m == nil {
		return
	}
	m.StateConsumeTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordConfigWrite(err error) {
	if m == nil {
		return
	}
	m.ConfigWritesTotal.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
