package otel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func TestSetupExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(Options{ServiceName: "credential-service", Version: "v1.0.0"}, zap.NewNop(), &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "oauth.refresh")
	span.End()

	// shutdown flushes the batcher
	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "oauth.refresh")
	assert.Contains(t, out, "credential-service")
}
