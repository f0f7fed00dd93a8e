package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRefresh("codex", "degraded", 10*time.Millisecond)
	m.RecordRefresh("codex", "degraded", 10*time.Millisecond)
	m.RecordStateConsume("cookie")
	m.RecordConfigWrite(errors.New("disk full"))
	m.RecordExchange("anthropic", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokenRefreshTotal.WithLabelValues("codex", "degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateConsumeTotal.WithLabelValues("cookie")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigWritesTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenExchangeTotal.WithLabelValues("anthropic", "ok")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRefresh("codex", "success", time.Second)
		m.RecordStateConsume("store")
		m.RecordConfigWrite(nil)
		m.RecordExchange("codex", nil)
	})
}
