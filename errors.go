package binxgraph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zero-day-ai/binxgraph/address"
	"github.com/zero-day-ai/binxgraph/analysis"
	"github.com/zero-day-ai/binxgraph/ingest"
	"github.com/zero-day-ai/binxgraph/store"
)

// Error kinds categorize errors by their type.
const (
	// KindValidation represents rejected input: a malformed document, an
	// unparseable address, an out-of-range depth.
	KindValidation = "validation"

	// KindNotFound represents lookups that matched nothing.
	KindNotFound = "not_found"

	// KindStorage represents graph store failures.
	KindStorage = "storage"

	// KindConfiguration represents invalid settings.
	KindConfiguration = "configuration"

	// KindInternal represents everything else.
	KindInternal = "internal"
)

// Error is a structured error carrying the failed operation and the
// category of failure.
//
// Error supports errors.Is and errors.As through the wrapped error, and
// matches a target *Error by Kind (and Op, when the target sets one):
//
//	if errors.Is(err, &binxgraph.Error{Kind: binxgraph.KindNotFound}) { ... }
type Error struct {
	// Op is the operation that failed (e.g., "Client.ImportFile").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindValidation).
	Kind string

	// Err is the underlying error.
	Err error

	// Context holds debugging details such as the file path or function.
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("binxgraph: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("binxgraph: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("binxgraph: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a target *Error by Kind and optional Op, and otherwise
// delegates to the wrapped error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind && (t.Op == "" || e.Op == t.Op) {
			return true
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of e with ctx merged into its context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	out := *e
	out.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		out.Context[k] = v
	}
	for k, v := range ctx {
		out.Context[k] = v
	}
	return &out
}

// KindOf returns the kind of the first *Error in err's chain. Without
// one, err is classified by the sentinel errors of the analysis, ingest
// and store packages; anything else is KindInternal.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

// wrap classifies err from the sentinel errors of the packages below and
// attaches op. Nil stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) string {
	switch {
	case errors.Is(err, ingest.ErrMalformedJSON),
		errors.Is(err, ingest.ErrBadPattern),
		errors.Is(err, ingest.ErrNotDirectory),
		errors.Is(err, address.ErrUnparseable),
		errors.Is(err, analysis.ErrFunctionRequired),
		errors.Is(err, analysis.ErrInvalidDepth),
		errors.Is(err, analysis.ErrInvalidFilter):
		return KindValidation
	case errors.Is(err, analysis.ErrNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrInvalidConfig):
		return KindConfiguration
	case errors.Is(err, store.ErrNotConnected),
		errors.Is(err, store.ErrConnectionFailed),
		errors.Is(err, store.ErrQueryFailed),
		errors.Is(err, store.ErrWriteFailed):
		return KindStorage
	default:
		return KindInternal
	}
}

// CloseWithLog closes closer and logs a failure at warning level. It is
// meant for defer statements. If logger is nil, slog.Default() is used.
//
//	defer binxgraph.CloseWithLog(f, logger, "export file")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
