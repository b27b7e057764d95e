package binxgraph

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/binxgraph/ingest"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	batchSize  int
	validate   bool
	fulltext   string
	ingestOpts []ingest.Option
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer("binxgraph"),
		meter:     metricnoop.NewMeterProvider().Meter("binxgraph"),
		batchSize: ingest.DefaultBatchSize,
	}
}

// WithLogger sets the logger shared by every component.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer for import and query spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *clientConfig) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithMeter sets the meter for import counters.
func WithMeter(meter metric.Meter) Option {
	return func(c *clientConfig) {
		if meter != nil {
			c.meter = meter
		}
	}
}

// WithBatchSize sets the number of entities per store round-trip.
// Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithValidation checks document shape before each import.
func WithValidation(enabled bool) Option {
	return func(c *clientConfig) {
		c.validate = enabled
	}
}

// WithFulltextIndex names the string fulltext index used by
// SearchStrings.
func WithFulltextIndex(name string) Option {
	return func(c *clientConfig) {
		c.fulltext = name
	}
}

// WithImportOptions appends raw importer options, applied after the
// options above.
func WithImportOptions(opts ...ingest.Option) Option {
	return func(c *clientConfig) {
		c.ingestOpts = append(c.ingestOpts, opts...)
	}
}
