package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{ServiceName: "binxgraph"})
	require.NoError(t, err)

	assert.Nil(t, p.MetricsHandler())
	_, span := p.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupTracing(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup(context.Background(), Config{ServiceName: "binxgraph", Tracing: true, TraceWriter: &buf})
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(context.Background(), "ingest.Import")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"ingest.Import"`)
}

func TestSetupMetrics(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, Config{ServiceName: "binxgraph", Metrics: true})
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	counter, err := p.Meter("test").Int64Counter("binxgraph.import.entities")
	require.NoError(t, err)
	counter.Add(ctx, 7)

	handler := p.MetricsHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "entities")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSetupNilContext(t *testing.T) {
	//nolint:staticcheck // exercising the nil guard
	_, err := Setup(nil, Config{})
	require.Error(t, err)
}
