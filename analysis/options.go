package analysis

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultDepth is the traversal depth used when callers pass zero.
	DefaultDepth = 3

	// MaxDepth is the deepest traversal an Analyzer runs.
	MaxDepth = 10

	// DefaultLimit caps lookup results.
	DefaultLimit = 100

	// IndirectRecursionMaxDepth bounds the cycle search of RecursiveCalls.
	IndirectRecursionMaxDepth = 10
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer sets the tracer used for query spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analyzer) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithFulltextIndex sets the index SearchStrings queries.
func WithFulltextIndex(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.fulltextIndex = name
		}
	}
}

func defaultTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("binxgraph/analysis")
}
