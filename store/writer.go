package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/zero-day-ai/binxgraph/graph"
	"github.com/zero-day-ai/binxgraph/graph/query"
)

var (
	binaryProps   = []string{"filename", "file_path", "file_size", "format", "arch"}
	functionProps = []string{"name", "address", "type", "size"}
	stringProps   = []string{"value", "address"}
)

// Writer upserts entities and relationships by key.
type Writer struct {
	client query.GraphClient
}

// NewWriter creates a Writer that executes through client.
func NewWriter(client query.GraphClient) *Writer {
	return &Writer{client: client}
}

// UpsertBinary merges the Binary node keyed by hash.
func (w *Writer) UpsertBinary(ctx context.Context, b graph.Binary) error {
	if err := b.Validate(); err != nil {
		return err
	}
	cypher := query.BuildMerge(graph.LabelBinary, "b", "hash", binaryProps)
	if err := w.client.Execute(ctx, cypher, b.Properties()); err != nil {
		return fmt.Errorf("upsert binary %s: %w", b.Hash, err)
	}
	return nil
}

// UpsertFunctions merges a batch of Function nodes in one statement.
func (w *Writer) UpsertFunctions(ctx context.Context, fns []graph.Function) error {
	if len(fns) == 0 {
		return nil
	}
	rows := make([]any, 0, len(fns))
	for _, f := range fns {
		if err := f.Validate(); err != nil {
			return err
		}
		rows = append(rows, f.Properties())
	}
	cypher := query.BuildUnwindMerge(graph.LabelFunction, "f", "uid", functionProps)
	if err := w.client.Execute(ctx, cypher, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("upsert %d functions: %w", len(fns), err)
	}
	return nil
}

// UpsertStrings merges a batch of String nodes.
func (w *Writer) UpsertStrings(ctx context.Context, strs []graph.StringLiteral) error {
	if len(strs) == 0 {
		return nil
	}
	rows := make([]any, 0, len(strs))
	for _, s := range strs {
		rows = append(rows, s.Properties())
	}
	cypher := query.BuildUnwindMerge(graph.LabelString, "s", "uid", stringProps)
	if err := w.client.Execute(ctx, cypher, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("upsert %d strings: %w", len(strs), err)
	}
	return nil
}

// UpsertLibraries merges a batch of Library nodes.
func (w *Writer) UpsertLibraries(ctx context.Context, libs []graph.Library) error {
	if len(libs) == 0 {
		return nil
	}
	rows := make([]any, 0, len(libs))
	for _, l := range libs {
		rows = append(rows, l.Properties())
	}
	cypher := query.BuildUnwindMerge(graph.LabelLibrary, "l", "name", nil)
	if err := w.client.Execute(ctx, cypher, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("upsert %d libraries: %w", len(libs), err)
	}
	return nil
}

// Link merges the relationship between two existing nodes. Relationship
// properties replace any previous values on the same endpoint pair. When
// either endpoint is missing nothing is written.
func (w *Writer) Link(ctx context.Context, rel graph.Relationship) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	from, to, _ := rel.Type.Endpoints()

	props := make([]string, 0, len(rel.Properties))
	params := map[string]any{"from": rel.From, "to": rel.To}
	for k, v := range rel.Properties {
		props = append(props, k)
		params[k] = v
	}
	sort.Strings(props)

	cypher := query.BuildMergeEdge(from.Label, from.Key, string(rel.Type), to.Label, to.Key, props)
	if err := w.client.Execute(ctx, cypher, params); err != nil {
		return fmt.Errorf("link %s %s->%s: %w", rel.Type, rel.From, rel.To, err)
	}
	return nil
}
