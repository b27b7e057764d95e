package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Importer runs import sessions against a Sink. It is safe for concurrent
// use; each import gets its own Session.
type Importer struct {
	sink Sink
	opts options
	inst *instruments
}

// NewImporter creates an Importer writing to sink.
func NewImporter(sink Sink, opts ...Option) (*Importer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	inst, err := newInstruments(o.meter)
	if err != nil {
		return nil, fmt.Errorf("create import instruments: %w", err)
	}
	return &Importer{sink: sink, opts: o, inst: inst}, nil
}

// BatchSize returns the configured chunk size.
func (im *Importer) BatchSize() int {
	return im.opts.batchSize
}

// ImportJSON imports one document. The returned error is non-nil only when
// data is not a JSON object; every other failure is reported in the Result.
func (im *Importer) ImportJSON(ctx context.Context, data []byte) (Result, error) {
	return im.importData(ctx, "", data)
}

// ImportReader imports a document read from r.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader) (Result, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return Result{}, fmt.Errorf("read document: %w", err)
	}
	return im.importData(ctx, "", buf.Bytes())
}

// ImportFile imports the document at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return im.importData(ctx, path, data)
}

func (im *Importer) importData(ctx context.Context, source string, data []byte) (Result, error) {
	runID := uuid.NewString()
	ctx, span := im.opts.tracer.Start(ctx, "ingest.Import", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("source", source),
		attribute.Int("bytes", len(data)),
	))
	defer span.End()

	if im.opts.validate {
		if v := Validate(data); !v.Valid {
			res := Result{RunID: runID, Source: source, Aborted: true, Errors: make([]string, 0, len(v.Errors))}
			for _, e := range v.Errors {
				res.Errors = append(res.Errors, "Validation failed: "+e)
			}
			span.SetStatus(codes.Error, "validation failed")
			im.inst.record(ctx, res)
			return res, nil
		}
	}

	p, err := decodePayload(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{RunID: runID, Source: source}, err
	}

	res := newSession(im.sink, im.opts, runID).run(ctx, p)
	res.Source = source

	span.SetAttributes(
		attribute.String("binary_hash", res.BinaryHash),
		attribute.Int("total_nodes", res.TotalNodes),
		attribute.Int("calls", res.Statistics.CallsRelationships),
		attribute.Int("skipped_calls", res.SkippedCalls),
		attribute.Int("errors", len(res.Errors)),
	)
	if !res.Success {
		span.SetStatus(codes.Error, "import completed with errors")
	}
	im.inst.record(ctx, res)

	im.opts.logger.Info("import finished",
		"run_id", runID,
		"source", source,
		"success", res.Success,
		"total_nodes", res.TotalNodes,
		"calls", res.Statistics.CallsRelationships,
		"skipped_calls", res.SkippedCalls,
		"errors", len(res.Errors),
		"duration", res.Duration)
	return res, nil
}
