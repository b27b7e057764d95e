package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/binxgraph/address"
	"github.com/zero-day-ai/binxgraph/graph"
	"github.com/zero-day-ai/binxgraph/graph/query"
	"github.com/zero-day-ai/binxgraph/store"
)

// Analyzer runs cross-reference queries. It never writes to the store and
// is safe for concurrent use.
type Analyzer struct {
	client        query.GraphClient
	logger        *slog.Logger
	tracer        trace.Tracer
	fulltextIndex string
}

// NewAnalyzer creates an Analyzer reading through client.
func NewAnalyzer(client query.GraphClient, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:        client,
		logger:        slog.Default(),
		tracer:        defaultTracer(),
		fulltextIndex: store.StringFulltextIndex,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CallPaths returns every path of CALLS edges leaving function, up to
// maxDepth edges long. When there is none, the result is a single path
// holding only the function.
func (a *Analyzer) CallPaths(ctx context.Context, function string, maxDepth int) ([]CallPath, error) {
	rows, err := a.paths(ctx, "CallPaths", function, maxDepth, query.Outgoing)
	if err != nil {
		return nil, err
	}

	paths := make([]CallPath, 0, len(rows))
	for i, row := range rows {
		names := row.Strings(query.ColNodeNames)
		if len(names) == 0 {
			continue
		}
		addrs := row.Strings(query.ColNodeAddresses)
		offsets := row.Strings(query.ColCallOffsets)
		types := row.Strings(query.ColCallTypes)

		p := CallPath{ID: fmt.Sprintf("path_%d", i+1)}
		for j, name := range names {
			node := CallPathNode{
				ID:       fmt.Sprintf("%s_%d", name, j),
				Name:     name,
				Address:  at(addrs, j),
				Depth:    j,
				CallType: NodeEntry,
			}
			if j > 0 {
				node.CallSite = at(offsets, j-1)
				node.CallType = string(graph.ParseCallType(at(types, j-1)))
			}
			p.add(node)
		}
		paths = append(paths, p)
	}

	if len(paths) == 0 {
		paths = append(paths, single(SinglePathID, function, NodeEntry))
	}
	return paths, nil
}

// UpwardChains returns every path of CALLS edges ending at function, up to
// maxDepth edges long, shortest first. Nodes run from the outermost caller
// to the function. When there is none, the result is a single chain
// holding only the function.
func (a *Analyzer) UpwardChains(ctx context.Context, function string, maxDepth int) ([]CallPath, error) {
	rows, err := a.paths(ctx, "UpwardChains", function, maxDepth, query.Incoming)
	if err != nil {
		return nil, err
	}

	chains := make([]CallPath, 0, len(rows))
	for i, row := range rows {
		names := row.Strings(query.ColNodeNames)
		if len(names) == 0 {
			continue
		}
		addrs := row.Strings(query.ColNodeAddresses)
		offsets := row.Strings(query.ColCallOffsets)

		c := CallPath{ID: fmt.Sprintf("upward_chain_%d", i+1)}
		for j, name := range names {
			node := CallPathNode{
				ID:       fmt.Sprintf("%s_%d", name, j),
				Name:     name,
				Address:  at(addrs, j),
				Depth:    j,
				CallType: NodeUpward,
			}
			if j < len(names)-1 {
				node.CallSite = at(offsets, j)
			}
			c.add(node)
		}
		chains = append(chains, c)
	}

	if len(chains) == 0 {
		chains = append(chains, single(SingleUpwardChainID, function, NodeRoot))
	}
	return chains, nil
}

func (a *Analyzer) paths(ctx context.Context, op, function string, maxDepth int, dir query.Direction) ([]query.Row, error) {
	depth, err := checkDepth(function, maxDepth)
	if err != nil {
		return nil, err
	}
	cypher, params, err := query.PathRequest{
		Function:      function,
		Direction:     dir,
		MinHops:       1,
		MaxHops:       depth,
		OrderByLength: dir == query.Incoming,
	}.Build()
	if err != nil {
		return nil, err
	}
	return a.rows(ctx, op, cypher, params, attribute.String("function", function), attribute.Int("depth", depth))
}

// CallSequences returns the direct calls made by function in call-site
// order.
func (a *Analyzer) CallSequences(ctx context.Context, function string) ([]CallSequence, error) {
	rows, err := a.edges(ctx, "CallSequences", function, query.Outgoing)
	if err != nil {
		return nil, err
	}
	out := make([]CallSequence, 0, len(rows))
	for _, row := range rows {
		caller, callee := row.String("caller_name"), row.String("callee_name")
		if caller == "" || callee == "" {
			continue
		}
		n := len(out) + 1
		out = append(out, CallSequence{
			ID:       fmt.Sprintf("seq_%d", n),
			Caller:   caller,
			Callee:   callee,
			Order:    n,
			CallSite: row.String("call_site"),
			CallType: graph.ParseCallType(row.String("call_type")),
		})
	}
	return out, nil
}

// CallerSequences returns the direct calls into function in call-site
// order.
func (a *Analyzer) CallerSequences(ctx context.Context, function string) ([]CallerSequence, error) {
	rows, err := a.edges(ctx, "CallerSequences", function, query.Incoming)
	if err != nil {
		return nil, err
	}
	out := make([]CallerSequence, 0, len(rows))
	for _, row := range rows {
		caller, callee := row.String("caller_name"), row.String("callee_name")
		if caller == "" || callee == "" {
			continue
		}
		n := len(out) + 1
		out = append(out, CallerSequence{
			ID:            fmt.Sprintf("caller_seq_%d", n),
			CallerName:    caller,
			CallerAddress: row.String("caller_address"),
			CalleeName:    callee,
			CalleeAddress: row.String("callee_address"),
			Order:         n,
			CallSite:      row.String("call_site"),
		})
	}
	return out, nil
}

// edges fetches the direct CALLS edges of function ordered numerically by
// call site. The store orders offsets as text, so the rows are re-sorted.
func (a *Analyzer) edges(ctx context.Context, op, function string, dir query.Direction) ([]query.Row, error) {
	if function == "" {
		return nil, ErrFunctionRequired
	}
	cypher, params, err := query.EdgeRequest{Function: function, Direction: dir}.Build()
	if err != nil {
		return nil, err
	}
	rows, err := a.rows(ctx, op, cypher, params, attribute.String("function", function))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return address.Compare(rows[i].String("call_site"), rows[j].String("call_site")) < 0
	})
	return rows, nil
}

// RecursiveCalls reports the self-calls of function and the cycles of
// length 2 to IndirectRecursionMaxDepth through it. A function that calls
// itself directly and through a longer cycle appears in both sets.
func (a *Analyzer) RecursiveCalls(ctx context.Context, function string) ([]RecursiveCall, error) {
	if function == "" {
		return nil, ErrFunctionRequired
	}

	var out []RecursiveCall
	for _, c := range []struct {
		kind     RecursionKind
		min, max int
	}{
		{RecursionDirect, 1, 1},
		{RecursionIndirect, 2, IndirectRecursionMaxDepth},
	} {
		cypher, params, err := query.CycleRequest{Function: function, MinHops: c.min, MaxHops: c.max}.Build()
		if err != nil {
			return nil, err
		}
		rows, err := a.rows(ctx, "RecursiveCalls", cypher, params,
			attribute.String("function", function), attribute.String("kind", string(c.kind)))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			name := row.String("function_name")
			if name == "" {
				continue
			}
			depth := int(row.Int64("depth"))
			if c.kind == RecursionDirect {
				depth = 1
			}
			out = append(out, RecursiveCall{
				FunctionName: name,
				Address:      row.String("function_address"),
				Kind:         c.kind,
				Depth:        depth,
				Cycle:        row.Strings("cycle_names"),
			})
		}
	}
	return out, nil
}

// AnalyzeContext gathers the upward chains, downward paths and callers of
// function and summarizes them.
func (a *Analyzer) AnalyzeContext(ctx context.Context, function string, maxDepth int) (ContextAnalysis, error) {
	ctx, span := a.tracer.Start(ctx, "analysis.AnalyzeContext", trace.WithAttributes(attribute.String("function", function)))
	defer span.End()

	up, err := a.UpwardChains(ctx, function, maxDepth)
	if err != nil {
		return ContextAnalysis{}, err
	}
	down, err := a.CallPaths(ctx, function, maxDepth)
	if err != nil {
		return ContextAnalysis{}, err
	}
	callers, err := a.CallerSequences(ctx, function)
	if err != nil {
		return ContextAnalysis{}, err
	}

	ca := ContextAnalysis{
		FunctionName:    function,
		UpwardChains:    up,
		DownwardPaths:   down,
		CallerSequences: callers,
	}
	ca.Insights = append(ca.Insights, fmt.Sprintf("Function '%s' has %d upward call chains and %d downward call paths",
		function, len(up), len(down)))
	if len(callers) > 0 {
		ca.Insights = append(ca.Insights, fmt.Sprintf("Function is called by %d different callers", len(callers)))
	}
	return ca, nil
}

// EnhancedCallGraph collects the distinct callees of function within
// maxDepth, its call paths, and the number of direct calls per callee name.
func (a *Analyzer) EnhancedCallGraph(ctx context.Context, function string, maxDepth int) (EnhancedCallGraph, error) {
	depth, err := checkDepth(function, maxDepth)
	if err != nil {
		return EnhancedCallGraph{}, err
	}

	callees, err := a.reach(ctx, "EnhancedCallGraph", function, depth, query.Outgoing, "")
	if err != nil {
		return EnhancedCallGraph{}, err
	}
	paths, err := a.CallPaths(ctx, function, depth)
	if err != nil {
		return EnhancedCallGraph{}, err
	}

	where, params := query.BuildWhereAny(query.Anchor(function), "caller")
	cypher := fmt.Sprintf("MATCH (caller:%s)-[:%s]->(callee:%s) %s RETURN callee.name AS callee_name, count(*) AS frequency",
		graph.LabelFunction, graph.RelCalls, graph.LabelFunction, where)
	rows, err := a.rows(ctx, "EnhancedCallGraph", cypher, params, attribute.String("function", function))
	if err != nil {
		return EnhancedCallGraph{}, err
	}

	g := EnhancedCallGraph{
		Callees:         callees,
		CallPaths:       paths,
		CallFrequencies: make(map[string]int64, len(rows)),
	}
	for _, row := range rows {
		if name := row.String("callee_name"); name != "" {
			g.CallFrequencies[name] = row.Int64("frequency")
		}
	}
	return g, nil
}

func (a *Analyzer) reach(ctx context.Context, op, function string, depth int, dir query.Direction, binary string) ([]FunctionInfo, error) {
	cypher, params, err := query.ReachRequest{Function: function, Direction: dir, MaxHops: depth, Binary: binary}.Build()
	if err != nil {
		return nil, err
	}
	rows, err := a.rows(ctx, op, cypher, params, attribute.String("function", function), attribute.String("direction", string(dir)))
	if err != nil {
		return nil, err
	}
	out := make([]FunctionInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, FunctionInfo{UID: row.String("uid"), Name: row.String("name"), Address: row.String("address")})
	}
	return out, nil
}

// rows runs one read inside a span named after op.
func (a *Analyzer) rows(ctx context.Context, op, cypher string, params map[string]any, attrs ...attribute.KeyValue) ([]query.Row, error) {
	ctx, span := a.tracer.Start(ctx, "analysis."+op, trace.WithAttributes(attrs...))
	defer span.End()

	raw, err := a.client.Query(ctx, cypher, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Debug("analysis query failed", "op", op, "error", err)
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	span.SetAttributes(attribute.Int("rows", len(raw)))
	return query.Rows(raw), nil
}

func checkDepth(function string, depth int) (int, error) {
	if function == "" {
		return 0, ErrFunctionRequired
	}
	if depth == 0 {
		depth = DefaultDepth
	}
	if depth < 1 || depth > MaxDepth {
		return 0, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidDepth, depth, MaxDepth)
	}
	return depth, nil
}

func single(id, function, nodeType string) CallPath {
	p := CallPath{ID: id}
	p.add(CallPathNode{ID: SingleNodeID, Name: function, CallType: nodeType})
	return p
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}
