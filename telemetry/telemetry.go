// Package telemetry builds the OpenTelemetry providers used by the CLI and
// the API server.
//
// Tracing exports spans as JSON lines to a writer (stderr by default).
// Metrics are collected into a private Prometheus registry and served by
// Providers.MetricsHandler. Disabled signals get no-op providers, so callers
// can always pass Tracer and Meter to the importer and analyzer.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Config selects which signals are exported.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Tracing enables the stdout span exporter
	Tracing bool

	// TraceWriter receives exported spans. Default: os.Stderr
	TraceWriter io.Writer

	// Metrics enables the Prometheus exporter
	Metrics bool
}

// Providers holds the configured providers.
type Providers struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	handler   http.Handler
	shutdowns []func(context.Context) error
}

// Setup builds providers for cfg. Call Shutdown on exit to flush spans.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	if ctx == nil {
		return nil, errors.New("telemetry: nil context")
	}

	p := &Providers{
		TracerProvider: tracenoop.NewTracerProvider(),
		MeterProvider:  metricnoop.NewMeterProvider(),
	}
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	if cfg.Tracing {
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		p.TracerProvider = tp
		p.shutdowns = append(p.shutdowns, tp.Shutdown)
	}

	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		p.MeterProvider = mp
		p.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		p.shutdowns = append(p.shutdowns, mp.Shutdown)
	}

	return p, nil
}

// Tracer returns a named tracer.
func (p *Providers) Tracer(name string) trace.Tracer {
	return p.TracerProvider.Tracer(name)
}

// Meter returns a named meter.
func (p *Providers) Meter(name string) metric.Meter {
	return p.MeterProvider.Meter(name)
}

// MetricsHandler serves the Prometheus exposition, or nil when metrics are
// disabled.
func (p *Providers) MetricsHandler() http.Handler {
	return p.handler
}

// Shutdown flushes and stops every enabled provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdowns = nil
	return errors.Join(errs...)
}
