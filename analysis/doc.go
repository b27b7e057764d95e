// Package analysis answers cross-reference questions over an imported
// binary knowledge graph.
//
// An Analyzer is read-only: every operation is a pattern-matching query
// against the graph store through a query.GraphClient. Call paths and
// upward chains walk CALLS edges up to a caller-supplied depth; when no
// path exists they return a single synthetic path holding only the
// requested function so callers always have something to render.
//
//	a := analysis.NewAnalyzer(client)
//	paths, err := a.CallPaths(ctx, "main", 3)
//	recursion, err := a.RecursiveCalls(ctx, "main")
//
// Lookups (FindFunctions, FindBinary, CallGraph, Xrefs, SearchStrings)
// cover the inspection queries of the command line tool. A PathFilter
// narrows call paths with a CEL expression.
package analysis
