package binxgraph

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zero-day-ai/binxgraph/ingest"
)

func TestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := defaultClientConfig()
		assert.Equal(t, slog.Default(), cfg.logger)
		assert.NotNil(t, cfg.tracer)
		assert.NotNil(t, cfg.meter)
		assert.Equal(t, ingest.DefaultBatchSize, cfg.batchSize)
		assert.False(t, cfg.validate)
	})

	t.Run("WithLogger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		cfg := defaultClientConfig()
		WithLogger(logger)(&cfg)
		assert.Same(t, logger, cfg.logger)

		WithLogger(nil)(&cfg)
		assert.Same(t, logger, cfg.logger)
	})

	t.Run("WithTracer", func(t *testing.T) {
		tracer := sdktrace.NewTracerProvider().Tracer("test")
		cfg := defaultClientConfig()
		WithTracer(tracer)(&cfg)
		assert.Equal(t, tracer, cfg.tracer)
	})

	t.Run("WithBatchSize", func(t *testing.T) {
		cfg := defaultClientConfig()
		WithBatchSize(50)(&cfg)
		assert.Equal(t, 50, cfg.batchSize)
		WithBatchSize(0)(&cfg)
		assert.Equal(t, 50, cfg.batchSize)
	})

	t.Run("WithValidation", func(t *testing.T) {
		cfg := defaultClientConfig()
		WithValidation(true)(&cfg)
		assert.True(t, cfg.validate)
	})

	t.Run("WithFulltextIndex", func(t *testing.T) {
		cfg := defaultClientConfig()
		WithFulltextIndex("strings_ft")(&cfg)
		assert.Equal(t, "strings_ft", cfg.fulltext)
	})

	t.Run("WithImportOptions", func(t *testing.T) {
		cfg := defaultClientConfig()
		WithImportOptions(ingest.WithBatchSize(7), ingest.WithValidation(true))(&cfg)
		assert.Len(t, cfg.ingestOpts, 2)
	})
}
