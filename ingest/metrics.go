package ingest

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	entities metric.Int64Counter
	errors   metric.Int64Counter
	skipped  metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	entities, err := meter.Int64Counter("binxgraph.import.entities",
		metric.WithDescription("Entities persisted by imports"))
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("binxgraph.import.errors",
		metric.WithDescription("Recoverable errors recorded by imports"))
	if err != nil {
		return nil, err
	}
	skipped, err := meter.Int64Counter("binxgraph.import.calls.skipped",
		metric.WithDescription("Call records whose endpoints did not resolve"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("binxgraph.import.duration",
		metric.WithDescription("Import duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &instruments{entities: entities, errors: errs, skipped: skipped, duration: duration}, nil
}

func (m *instruments) record(ctx context.Context, r Result) {
	add := func(kind string, n int) {
		if n > 0 {
			m.entities.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
		}
	}
	s := r.Statistics
	add("binary", s.Binaries)
	add("function", s.Functions)
	add("import", s.ImportedFunctions)
	add("export", s.ExportedFunctions)
	add("string", s.Strings)
	add("library", s.Libraries)
	add("call", s.CallsRelationships)

	if len(r.Errors) > 0 {
		m.errors.Add(ctx, int64(len(r.Errors)))
	}
	if r.SkippedCalls > 0 {
		m.skipped.Add(ctx, int64(r.SkippedCalls))
	}
	m.duration.Record(ctx, r.Duration.Seconds(),
		metric.WithAttributes(attribute.Bool("success", r.Success)))
}
