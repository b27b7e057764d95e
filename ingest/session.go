package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/binxgraph/graph"
)

// Session imports one document. A Session owns its address map and result
// and is not safe for concurrent use; create one per document.
type Session struct {
	sink      Sink
	batchSize int
	logger    *slog.Logger
	tracer    trace.Tracer

	binary graph.Binary

	// addrs maps raw and canonical address strings to Function keys.
	addrs map[string]string

	// functions holds what the functions phase persisted, by key.
	functions map[string]graph.Function

	// written holds every Function key upserted so far
	written map[string]bool

	result Result
}

func newSession(sink Sink, o options, runID string) *Session {
	return &Session{
		sink:      sink,
		batchSize: o.batchSize,
		logger:    o.logger.With("run_id", runID),
		tracer:    o.tracer,
		addrs:     make(map[string]string),
		functions: make(map[string]graph.Function),
		written:   make(map[string]bool),
		result:    Result{RunID: runID, Errors: []string{}},
	}
}

// run executes every phase in order and returns the final result.
func (s *Session) run(ctx context.Context, p payload) Result {
	start := time.Now()

	if s.phase(ctx, "binary", func(ctx context.Context) bool { return s.importBinary(ctx, p) }) {
		s.phase(ctx, "functions", func(ctx context.Context) bool { s.importFunctions(ctx, p); return true })
		s.phase(ctx, "strings", func(ctx context.Context) bool { s.importStrings(ctx, p); return true })
		s.phase(ctx, "imports", func(ctx context.Context) bool { s.importImports(ctx, p); return true })
		s.phase(ctx, "exports", func(ctx context.Context) bool { s.importExports(ctx, p); return true })
		s.phase(ctx, "calls", func(ctx context.Context) bool { s.importCalls(ctx, p); return true })
	} else {
		s.result.Aborted = true
	}

	s.result.Duration = time.Since(start)
	s.result.TotalNodes = s.result.Statistics.TotalNodes()
	s.result.Success = len(s.result.Errors) == 0
	return s.result
}

// phase runs fn inside a span. It returns fn's continue flag.
func (s *Session) phase(ctx context.Context, name string, fn func(context.Context) bool) bool {
	ctx, span := s.tracer.Start(ctx, "ingest.phase."+name)
	defer span.End()

	before := len(s.result.Errors)
	ok := fn(ctx)
	if n := len(s.result.Errors) - before; n > 0 {
		span.SetAttributes(attribute.Int("errors", n))
	}
	if !ok {
		span.SetStatus(codes.Error, "aborted")
	}
	return ok
}

func (s *Session) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.result.Errors = append(s.result.Errors, msg)
	s.logger.Debug("import error", "error", msg)
}

// register maps addr to uid. Unless override is set an existing mapping
// is kept.
func (s *Session) register(addr, uid string, override bool) {
	if addr == "" {
		return
	}
	if _, claimed := s.addrs[addr]; claimed && !override {
		return
	}
	s.addrs[addr] = uid
}

// resolve looks up an endpoint by canonical form first, then as written.
func (s *Session) resolve(raw string) (string, bool) {
	if canon, ok := canonical(raw); ok {
		if uid, ok := s.addrs[canon]; ok {
			return uid, true
		}
	}
	if uid, ok := s.addrs[raw]; ok {
		return uid, true
	}
	uid, ok := s.addrs[strings.TrimSpace(raw)]
	return uid, ok
}

// chunks splits n items into batch-size ranges.
func (s *Session) chunks(n int) [][2]int {
	var out [][2]int
	for lo := 0; lo < n; lo += s.batchSize {
		hi := lo + s.batchSize
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}
