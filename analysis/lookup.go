package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zero-day-ai/binxgraph/address"
	"github.com/zero-day-ai/binxgraph/graph"
	"github.com/zero-day-ai/binxgraph/graph/id"
	"github.com/zero-day-ai/binxgraph/graph/query"
)

// FunctionQuery selects functions by name or key substring.
type FunctionQuery struct {
	Pattern string

	// Binary restricts the search to functions contained in binaries
	// matched by hash or filename substring.
	Binary string

	// Limit caps the result; zero means DefaultLimit.
	Limit int
}

// FindFunctions returns the functions whose name or key contains the
// pattern.
func (a *Analyzer) FindFunctions(ctx context.Context, q FunctionQuery) ([]graph.Function, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	match, params := query.AnyOf([]query.Predicate{
		{Field: "name", Op: query.Contains, Value: q.Pattern, Param: "pattern"},
		{Field: "uid", Op: query.Contains, Value: q.Pattern, Param: "pattern"},
	}, "f")

	var b strings.Builder
	if q.Binary != "" {
		scope, scopeParams := query.AnyOf(query.BinaryScope(q.Binary), "b")
		fmt.Fprintf(&b, "MATCH (b:%s)-[:%s]->(f:%s) WHERE (%s) AND (%s)",
			graph.LabelBinary, graph.RelContains, graph.LabelFunction, match, scope)
		for k, v := range scopeParams {
			params[k] = v
		}
	} else {
		fmt.Fprintf(&b, "MATCH (f:%s) WHERE %s", graph.LabelFunction, match)
	}
	fmt.Fprintf(&b, " RETURN f.uid AS uid, f.name AS name, f.address AS address, f.type AS type, f.size AS size ORDER BY f.uid LIMIT %d", limit)

	rows, err := a.rows(ctx, "FindFunctions", b.String(), params, attribute.String("pattern", q.Pattern))
	if err != nil {
		return nil, err
	}
	out := make([]graph.Function, 0, len(rows))
	for _, row := range rows {
		fn := graph.Function{
			UID:     row.String("uid"),
			Name:    row.String("name"),
			Address: row.String("address"),
			Type:    graph.ParseFunctionType(row.String("type")),
		}
		if row.Has("size") {
			if size := row.Int64("size"); size >= 0 {
				u := uint64(size)
				fn.Size = &u
			}
		}
		out = append(out, fn)
	}
	return out, nil
}

// FindBinary returns the first binary whose hash equals name or whose
// filename contains it.
func (a *Analyzer) FindBinary(ctx context.Context, name string) (graph.Binary, error) {
	if name == "" {
		return graph.Binary{}, fmt.Errorf("%w: binary name is empty", ErrNotFound)
	}
	where, params := query.BuildWhereAny(query.BinaryScope(name), "b")
	cypher := fmt.Sprintf("MATCH (b:%s) %s RETURN b.hash AS hash, b.filename AS filename, b.file_path AS file_path, "+
		"b.file_size AS file_size, b.format AS format, b.arch AS arch ORDER BY b.hash LIMIT 1", graph.LabelBinary, where)

	rows, err := a.rows(ctx, "FindBinary", cypher, params, attribute.String("binary", name))
	if err != nil {
		return graph.Binary{}, err
	}
	if len(rows) == 0 {
		return graph.Binary{}, fmt.Errorf("%w: binary %q", ErrNotFound, name)
	}
	row := rows[0]
	b := graph.Binary{
		Hash:     row.String("hash"),
		Filename: row.String("filename"),
		FilePath: row.String("file_path"),
		Format:   graph.ClassifyFormat(row.String("format")),
		Arch:     row.String("arch"),
	}
	if size := row.Int64("file_size"); size > 0 {
		b.FileSize = uint64(size)
	}
	return b, nil
}

// CallGraph returns the distinct callees and callers of function within
// maxDepth edges, optionally restricted to one binary.
func (a *Analyzer) CallGraph(ctx context.Context, function, binary string, maxDepth int) (CallGraph, error) {
	depth, err := checkDepth(function, maxDepth)
	if err != nil {
		return CallGraph{}, err
	}
	callees, err := a.reach(ctx, "CallGraph", function, depth, query.Outgoing, binary)
	if err != nil {
		return CallGraph{}, err
	}
	callers, err := a.reach(ctx, "CallGraph", function, depth, query.Incoming, binary)
	if err != nil {
		return CallGraph{}, err
	}
	return CallGraph{Callees: callees, Callers: callers}, nil
}

// Xrefs returns the CALLS edges whose caller or callee sits at addr,
// ordered by call site. The address is normalized first so any accepted
// spelling matches.
func (a *Analyzer) Xrefs(ctx context.Context, addr, binary string) ([]Xref, error) {
	canon := address.NormalizeOr(addr, strings.TrimSpace(addr))
	if canon == "" {
		return nil, fmt.Errorf("%w: %q", address.ErrUnparseable, addr)
	}

	params := map[string]any{"address": canon}
	var b strings.Builder
	if binary != "" {
		scope, scopeParams := query.AnyOf(query.BinaryScope(binary), "b")
		fmt.Fprintf(&b, "MATCH (b:%s)-[:%s]->(from:%s)-[r:%s]->(to:%s) WHERE (from.address = $address OR to.address = $address) AND (%s)",
			graph.LabelBinary, graph.RelContains, graph.LabelFunction, graph.RelCalls, graph.LabelFunction, scope)
		for k, v := range scopeParams {
			params[k] = v
		}
	} else {
		fmt.Fprintf(&b, "MATCH (from:%s)-[r:%s]->(to:%s) WHERE from.address = $address OR to.address = $address",
			graph.LabelFunction, graph.RelCalls, graph.LabelFunction)
	}
	b.WriteString(" RETURN from.name AS from_function, from.address AS from_address, to.name AS to_function, " +
		"to.address AS to_address, r.offset AS offset, r.call_type AS call_type")

	rows, err := a.rows(ctx, "Xrefs", b.String(), params, attribute.String("address", canon))
	if err != nil {
		return nil, err
	}
	out := make([]Xref, 0, len(rows))
	for _, row := range rows {
		out = append(out, Xref{
			FromFunction: row.String("from_function"),
			FromAddress:  row.String("from_address"),
			ToFunction:   row.String("to_function"),
			ToAddress:    row.String("to_address"),
			Offset:       row.String("offset"),
			CallType:     graph.ParseCallType(row.String("call_type")),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return address.Compare(out[i].Offset, out[j].Offset) < 0
	})
	return out, nil
}

// StringQuery selects string literals through the fulltext index.
type StringQuery struct {
	Text string

	// BinaryHash restricts hits to strings of one binary.
	BinaryHash string

	// Raw passes Text to the index as a Lucene query. Otherwise Text is
	// escaped and matched as a substring.
	Raw bool

	// Limit caps the result; zero means DefaultLimit.
	Limit int
}

// SearchStrings returns the string literals matching q, best first.
func (a *Analyzer) SearchStrings(ctx context.Context, q StringQuery) ([]StringMatch, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("%w: search text is empty", ErrNotFound)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	text := q.Text
	if !q.Raw {
		text = "*" + escapeLucene(text) + "*"
	}

	params := map[string]any{"index": a.fulltextIndex, "text": text}
	var b strings.Builder
	b.WriteString("CALL db.index.fulltext.queryNodes($index, $text) YIELD node, score")
	if q.BinaryHash != "" {
		b.WriteString(" WHERE node.uid STARTS WITH $prefix")
		params["prefix"] = id.StringPrefix(q.BinaryHash)
	}
	fmt.Fprintf(&b, " RETURN node.uid AS uid, node.value AS value, node.address AS address, score ORDER BY score DESC LIMIT %d", limit)

	rows, err := a.rows(ctx, "SearchStrings", b.String(), params, attribute.String("text", q.Text))
	if err != nil {
		return nil, err
	}
	out := make([]StringMatch, 0, len(rows))
	for _, row := range rows {
		out = append(out, StringMatch{
			UID:     row.String("uid"),
			Value:   row.String("value"),
			Address: row.String("address"),
			Score:   row.Float64("score"),
		})
	}
	return out, nil
}

var luceneSpecial = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `&`, `\&`, `|`, `\|`, `!`, `\!`,
	`(`, `\(`, `)`, `\)`, `{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`,
	`^`, `\^`, `"`, `\"`, `~`, `\~`, `*`, `\*`, `?`, `\?`, `:`, `\:`,
	`/`, `\/`, ` `, `\ `,
)

func escapeLucene(s string) string {
	return luceneSpecial.Replace(s)
}
