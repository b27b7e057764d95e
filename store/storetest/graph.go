package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/zero-day-ai/binxgraph/graph"
)

// Graph is an in-memory store with upsert-by-key semantics. Link writes
// nothing when an endpoint does not exist, matching MATCH ... MERGE.
// Like the driver, every method fails with ctx's error once ctx is done.
type Graph struct {
	mu sync.Mutex

	Binaries  map[string]graph.Binary
	Functions map[string]graph.Function
	Strings   map[string]graph.StringLiteral
	Libraries map[string]graph.Library
	Edges     map[EdgeKey]graph.Relationship

	// FailFunctions, when it returns an error for a batch, rejects it.
	FailFunctions func([]graph.Function) error
	// FailStrings, when it returns an error for a batch, rejects it.
	FailStrings func([]graph.StringLiteral) error
	// FailLink, when it returns an error for an edge, rejects it.
	FailLink func(graph.Relationship) error
	// FailBinary rejects binary upserts when set.
	FailBinary error

	// FunctionBatches records the size of every accepted function batch.
	FunctionBatches []int
}

// EdgeKey identifies an edge by type and endpoint pair.
type EdgeKey struct {
	Type     graph.RelationType
	From, To string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Binaries:  map[string]graph.Binary{},
		Functions: map[string]graph.Function{},
		Strings:   map[string]graph.StringLiteral{},
		Libraries: map[string]graph.Library{},
		Edges:     map[EdgeKey]graph.Relationship{},
	}
}

func (g *Graph) UpsertBinary(ctx context.Context, b graph.Binary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailBinary != nil {
		return g.FailBinary
	}
	g.Binaries[b.Hash] = b
	return nil
}

func (g *Graph) UpsertFunctions(ctx context.Context, fns []graph.Function) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailFunctions != nil {
		if err := g.FailFunctions(fns); err != nil {
			return err
		}
	}
	for _, f := range fns {
		g.Functions[f.UID] = f
	}
	g.FunctionBatches = append(g.FunctionBatches, len(fns))
	return nil
}

func (g *Graph) UpsertStrings(ctx context.Context, strs []graph.StringLiteral) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailStrings != nil {
		if err := g.FailStrings(strs); err != nil {
			return err
		}
	}
	for _, s := range strs {
		g.Strings[s.UID] = s
	}
	return nil
}

func (g *Graph) UpsertLibraries(ctx context.Context, libs []graph.Library) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, l := range libs {
		g.Libraries[l.Name] = l
	}
	return nil
}

func (g *Graph) Link(ctx context.Context, rel graph.Relationship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := rel.Validate(); err != nil {
		return err
	}
	if g.FailLink != nil {
		if err := g.FailLink(rel); err != nil {
			return err
		}
	}
	from, to, _ := rel.Type.Endpoints()
	if !g.exists(from, rel.From) || !g.exists(to, rel.To) {
		return nil
	}
	g.Edges[EdgeKey{rel.Type, rel.From, rel.To}] = rel
	return nil
}

func (g *Graph) exists(ep graph.Endpoint, key string) bool {
	var ok bool
	switch ep.Label {
	case graph.LabelBinary:
		_, ok = g.Binaries[key]
	case graph.LabelFunction:
		_, ok = g.Functions[key]
	case graph.LabelLibrary:
		_, ok = g.Libraries[key]
	case graph.LabelString:
		_, ok = g.Strings[key]
	}
	return ok
}

// EdgesOf returns the edges of type t sorted by endpoints.
func (g *Graph) EdgesOf(t graph.RelationType) []graph.Relationship {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []graph.Relationship
	for k, r := range g.Edges {
		if k.Type == t {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// SelfCalls returns the rows a direct-recursion query anchored at function
// (matched by name or key) would produce for the CALLS edges stored.
func (g *Graph) SelfCalls(function string) []map[string]any {
	var rows []map[string]any
	for _, r := range g.EdgesOf(graph.RelCalls) {
		if r.From != r.To {
			continue
		}
		g.mu.Lock()
		f := g.Functions[r.From]
		g.mu.Unlock()
		if f.Name != function && f.UID != function {
			continue
		}
		rows = append(rows, map[string]any{
			"depth":            int64(1),
			"function_name":    f.Name,
			"function_address": f.Address,
			"function_uid":     f.UID,
			"cycle_names":      []any{f.Name, f.Name},
		})
	}
	return rows
}
