package api

import (
	"github.com/zero-day-ai/binxgraph/analysis"
	"github.com/zero-day-ai/binxgraph/graph"
	"github.com/zero-day-ai/binxgraph/store"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is returned by GET /v1/health.
type HealthResponse struct {
	Status  string             `json:"status"`
	Version string             `json:"version"`
	Store   store.HealthStatus `json:"store"`
}

// FunctionsResponse is returned by GET /v1/functions.
type FunctionsResponse struct {
	Functions []graph.Function `json:"functions"`
	Count     int              `json:"count"`
}

// PathsResponse is returned by the paths and upward routes.
type PathsResponse struct {
	Function string              `json:"function"`
	Depth    int                 `json:"depth"`
	Filter   string              `json:"filter,omitempty"`
	Paths    []analysis.CallPath `json:"paths"`
	Count    int                 `json:"count"`
}

// SequencesResponse is returned by GET /v1/functions/:name/sequences.
type SequencesResponse struct {
	Function  string                  `json:"function"`
	Sequences []analysis.CallSequence `json:"sequences"`
}

// CallersResponse is returned by GET /v1/functions/:name/callers.
type CallersResponse struct {
	Function string                    `json:"function"`
	Callers  []analysis.CallerSequence `json:"callers"`
}

// RecursionResponse is returned by GET /v1/functions/:name/recursion.
type RecursionResponse struct {
	Function  string                   `json:"function"`
	Recursive []analysis.RecursiveCall `json:"recursive_calls"`
}

// XrefsResponse is returned by GET /v1/xrefs/:address.
type XrefsResponse struct {
	Address string          `json:"address"`
	Xrefs   []analysis.Xref `json:"xrefs"`
}

// StringsResponse is returned by GET /v1/strings.
type StringsResponse struct {
	Query   string                 `json:"query"`
	Matches []analysis.StringMatch `json:"matches"`
}
