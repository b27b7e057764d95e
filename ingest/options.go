package ingest

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultBatchSize is the number of entities persisted per store round-trip.
const DefaultBatchSize = 1000

// Option configures an Importer.
type Option func(*options)

type options struct {
	batchSize int
	validate  bool
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
}

func defaultOptions() options {
	return options{
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer("binxgraph/ingest"),
		meter:     metricnoop.NewMeterProvider().Meter("binxgraph/ingest"),
	}
}

// WithBatchSize sets the chunk size for batched upserts. Values below 1
// are ignored.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithValidation makes the importer check the document shape before
// importing and reject documents that fail.
func WithValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer used for import and phase spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithMeter sets the meter used for import counters.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}
