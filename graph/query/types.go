// Package query builds parameterized Cypher for the binary knowledge graph
// and defines the client contract the rest of the module executes it with.
//
// Values are always bound as parameters; only labels, relationship types,
// property names and hop bounds are rendered into the statement text, and
// those come from package graph constants or validated integers.
package query

import (
	"context"
	"fmt"
)

// Op represents a comparison or filter operation in a query predicate.
type Op int

const (
	// Eq represents equality comparison (=)
	Eq Op = iota
	// Neq represents inequality comparison (<>)
	Neq
	// Lt represents less than comparison (<)
	Lt
	// Lte represents less than or equal comparison (<=)
	Lte
	// Gt represents greater than comparison (>)
	Gt
	// Gte represents greater than or equal comparison (>=)
	Gte
	// Contains represents string containment check (CONTAINS)
	Contains
	// StartsWith represents string prefix check (STARTS WITH)
	StartsWith
	// EndsWith represents string suffix check (ENDS WITH)
	EndsWith
	// In represents membership check (IN)
	In
	// IsNull represents null check (IS NULL)
	IsNull
	// IsNotNull represents non-null check (IS NOT NULL)
	IsNotNull
)

// String returns the Cypher operator.
func (o Op) String() string {
	switch o {
	case Eq:
		return "="
	case Neq:
		return "<>"
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	case Contains:
		return "CONTAINS"
	case StartsWith:
		return "STARTS WITH"
	case EndsWith:
		return "ENDS WITH"
	case In:
		return "IN"
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Predicate is a filter condition on one property.
type Predicate struct {
	// Field is the property name to filter on
	Field string
	// Op is the comparison operation to perform
	Op Op
	// Value is the comparison value (may be nil for IsNull/IsNotNull)
	Value any
	// Param names the bound parameter. Predicates sharing a Param share one
	// value; when empty a positional name ($p0, $p1, ...) is used.
	Param string
}

// Direction is the orientation of a relationship pattern relative to the
// anchored node.
type Direction string

const (
	Outgoing   Direction = "out"
	Incoming   Direction = "in"
	Undirected Direction = "both"
)

// Traversal represents a single relationship hop.
type Traversal struct {
	// Relationship is the relationship type to traverse
	Relationship string
	// TargetType is the target node label to match
	TargetType string
	// Direction defaults to Outgoing when empty or unknown
	Direction Direction
}

// GraphClient executes Cypher against a graph store. Implementations own
// connection management, parameter binding and result decoding.
type GraphClient interface {
	// Query runs a read statement and returns each row as a map of column
	// names to values.
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

	// Execute runs a write statement and discards its rows.
	Execute(ctx context.Context, cypher string, params map[string]any) error
}
