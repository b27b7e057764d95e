package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zero-day-ai/binxgraph/graph"
)

// ErrInvalidHops is returned when a path request has unusable hop bounds.
var ErrInvalidHops = errors.New("invalid hop bounds")

// MaxHopsLimit caps variable-length traversals.
const MaxHopsLimit = 32

// Column names produced by PathRequest.Build.
const (
	ColPathLength    = "path_length"
	ColNodeNames     = "node_names"
	ColNodeAddresses = "node_addresses"
	ColNodeUIDs      = "node_uids"
	ColCallOffsets   = "call_offsets"
	ColCallTypes     = "call_types"
)

// PathRequest describes a variable-length walk over CALLS edges anchored at
// one function, matched by name or key.
//
// With Direction Outgoing the anchor is the first node of each path (the
// function's callees, transitively). With Incoming the anchor is the last
// node (its callers). Nodes are always returned in call order.
type PathRequest struct {
	// Function is matched against both name and uid.
	Function string

	Direction Direction

	MinHops int
	MaxHops int

	// OrderByLength sorts shortest paths first.
	OrderByLength bool

	// Limit caps the number of rows; zero means unlimited.
	Limit int
}

// Validate checks hop bounds and the anchor.
func (r PathRequest) Validate() error {
	if r.Function == "" {
		return fmt.Errorf("%w: function is required", ErrInvalidHops)
	}
	if r.MinHops < 1 || r.MaxHops < r.MinHops || r.MaxHops > MaxHopsLimit {
		return fmt.Errorf("%w: %d..%d", ErrInvalidHops, r.MinHops, r.MaxHops)
	}
	if r.Direction == Undirected {
		return fmt.Errorf("%w: call paths are directed", ErrInvalidHops)
	}
	return nil
}

// Build renders the request. Each row carries the path length and parallel
// lists of node names, addresses and uids plus the offsets and call types
// of the traversed edges.
func (r PathRequest) Build() (string, map[string]any, error) {
	if err := r.Validate(); err != nil {
		return "", nil, err
	}

	anchor := "start"
	if r.Direction == Incoming {
		anchor = "end"
	}
	where, params := BuildWhereAny(Anchor(r.Function), anchor)

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH path = (start:%s)-[:%s*%d..%d]->(end:%s) %s ",
		graph.LabelFunction, graph.RelCalls, r.MinHops, r.MaxHops, graph.LabelFunction, where)
	b.WriteString("RETURN length(path) AS " + ColPathLength + ", ")
	b.WriteString("[n IN nodes(path) | n.name] AS " + ColNodeNames + ", ")
	b.WriteString("[n IN nodes(path) | n.address] AS " + ColNodeAddresses + ", ")
	b.WriteString("[n IN nodes(path) | n.uid] AS " + ColNodeUIDs + ", ")
	b.WriteString("[rel IN relationships(path) | rel.offset] AS " + ColCallOffsets + ", ")
	b.WriteString("[rel IN relationships(path) | rel.call_type] AS " + ColCallTypes)
	if r.OrderByLength {
		b.WriteString(" ORDER BY " + ColPathLength)
	}
	if r.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", r.Limit)
	}
	return b.String(), params, nil
}

// CycleRequest finds paths over CALLS edges that return to the anchor
// function. MinHops 1 with MaxHops 1 selects direct self-calls.
type CycleRequest struct {
	// Function is matched against both name and uid.
	Function string

	MinHops int
	MaxHops int
}

// Build renders the request. Rows carry depth, function_name,
// function_address, function_uid and the names along the cycle.
func (r CycleRequest) Build() (string, map[string]any, error) {
	if r.Function == "" {
		return "", nil, fmt.Errorf("%w: function is required", ErrInvalidHops)
	}
	if r.MinHops < 1 || r.MaxHops < r.MinHops || r.MaxHops > MaxHopsLimit {
		return "", nil, fmt.Errorf("%w: %d..%d", ErrInvalidHops, r.MinHops, r.MaxHops)
	}
	where, params := BuildWhereAny(Anchor(r.Function), "f")
	fields := "f.name AS function_name, f.address AS function_address, f.uid AS function_uid"
	if r.MaxHops == 1 {
		return fmt.Sprintf("MATCH (f:%s)-[:%s]->(f) %s RETURN DISTINCT 1 AS depth, %s, [f.name, f.name] AS cycle_names",
			graph.LabelFunction, graph.RelCalls, where, fields), params, nil
	}
	return fmt.Sprintf("MATCH path = (f:%s)-[:%s*%d..%d]->(f) %s RETURN length(path) AS depth, %s, [n IN nodes(path) | n.name] AS cycle_names",
		graph.LabelFunction, graph.RelCalls, r.MinHops, r.MaxHops, where, fields), params, nil
}

// EdgeRequest lists the CALLS edges leaving (Outgoing) or entering
// (Incoming) one function, ordered by call-site offset.
type EdgeRequest struct {
	Function  string
	Direction Direction
}

// Build renders the request. Rows carry caller_name, caller_address,
// caller_uid, callee_name, callee_address, callee_uid, call_site and
// call_type.
func (r EdgeRequest) Build() (string, map[string]any, error) {
	if r.Function == "" {
		return "", nil, fmt.Errorf("%w: function is required", ErrInvalidHops)
	}
	anchor := "caller"
	if r.Direction == Incoming {
		anchor = "callee"
	}
	where, params := BuildWhereAny(Anchor(r.Function), anchor)
	cypher := fmt.Sprintf("MATCH (caller:%s)-[r:%s]->(callee:%s) %s "+
		"RETURN caller.name AS caller_name, caller.address AS caller_address, caller.uid AS caller_uid, "+
		"callee.name AS callee_name, callee.address AS callee_address, callee.uid AS callee_uid, "+
		"r.offset AS call_site, r.call_type AS call_type ORDER BY r.offset",
		graph.LabelFunction, graph.RelCalls, graph.LabelFunction, where)
	return cypher, params, nil
}

// Anchor matches a function by display name or key with one
// shared parameter.
func Anchor(function string) []Predicate {
	return []Predicate{
		{Field: "name", Op: Eq, Value: function, Param: "function"},
		{Field: "uid", Op: Eq, Value: function, Param: "function"},
	}
}

// ReachRequest lists the distinct functions reachable from (Outgoing) or
// reaching (Incoming) one function within MaxHops CALLS edges. Binary, when
// set, restricts the anchor to functions of a binary matched by hash or
// filename substring.
type ReachRequest struct {
	Function  string
	Direction Direction
	MaxHops   int
	Binary    string
}

// Build renders the request. Rows carry uid, name and address of each
// reached function.
func (r ReachRequest) Build() (string, map[string]any, error) {
	if r.Function == "" {
		return "", nil, fmt.Errorf("%w: function is required", ErrInvalidHops)
	}
	if r.MaxHops < 1 || r.MaxHops > MaxHopsLimit {
		return "", nil, fmt.Errorf("%w: 1..%d", ErrInvalidHops, r.MaxHops)
	}
	if r.Direction == Undirected {
		return "", nil, fmt.Errorf("%w: reach is directed", ErrInvalidHops)
	}

	edge := fmt.Sprintf("-[:%s*1..%d]->", graph.RelCalls, r.MaxHops)
	if r.Direction == Incoming {
		edge = fmt.Sprintf("<-[:%s*1..%d]-", graph.RelCalls, r.MaxHops)
	}
	anchor, params := AnyOf(Anchor(r.Function), "f")

	var b strings.Builder
	b.WriteString("MATCH ")
	if r.Binary != "" {
		fmt.Fprintf(&b, "(b:%s)-[:%s]->", graph.LabelBinary, graph.RelContains)
	}
	fmt.Fprintf(&b, "(f:%s)%s(n:%s) WHERE (%s)", graph.LabelFunction, edge, graph.LabelFunction, anchor)
	if r.Binary != "" {
		scope, scopeParams := AnyOf(BinaryScope(r.Binary), "b")
		fmt.Fprintf(&b, " AND (%s)", scope)
		for k, v := range scopeParams {
			params[k] = v
		}
	}
	b.WriteString(" RETURN DISTINCT n.uid AS uid, n.name AS name, n.address AS address ORDER BY name")
	return b.String(), params, nil
}

// BinaryScope matches a Binary by exact hash or filename substring with one
// shared parameter.
func BinaryScope(binary string) []Predicate {
	return []Predicate{
		{Field: "filename", Op: Contains, Value: binary, Param: "binary"},
		{Field: "hash", Op: Eq, Value: binary, Param: "binary"},
	}
}
