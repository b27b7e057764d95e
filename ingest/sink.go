package ingest

import (
	"context"

	"github.com/zero-day-ai/binxgraph/graph"
)

// Sink receives the entities of an import. Every method must be an
// idempotent upsert keyed on the entity key or edge endpoint pair.
// *store.Writer is the production implementation.
type Sink interface {
	UpsertBinary(ctx context.Context, b graph.Binary) error
	UpsertFunctions(ctx context.Context, fns []graph.Function) error
	UpsertStrings(ctx context.Context, strs []graph.StringLiteral) error
	UpsertLibraries(ctx context.Context, libs []graph.Library) error
	Link(ctx context.Context, rel graph.Relationship) error
}
