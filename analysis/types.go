package analysis

import "github.com/zero-day-ai/binxgraph/graph"

// Node call types that are not CALLS edge types.
const (
	NodeEntry  = "Entry"
	NodeRoot   = "Root"
	NodeUpward = "Upward"
)

// Identifiers of the synthetic fallback paths.
const (
	SinglePathID        = "single_path"
	SingleUpwardChainID = "single_upward_chain"
	SingleNodeID        = "single_node"
)

// CallPathNode is one function on a call path.
type CallPathNode struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`

	// Depth is the node's index on the path; the anchor of a call path has
	// depth 0.
	Depth int `json:"depth"`

	// CallSite is the offset of the edge connecting this node to its
	// neighbour on the path, when there is one.
	CallSite string `json:"call_site,omitempty"`
	CallType string `json:"call_type"`
}

// CallPath is a sequence of functions connected by CALLS edges, in call
// order. Upward chains use the same shape.
type CallPath struct {
	ID     string         `json:"id"`
	Nodes  []CallPathNode `json:"nodes"`
	Length int            `json:"length"`
}

// Names returns the function names along the path.
func (p CallPath) Names() []string {
	out := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = n.Name
	}
	return out
}

// Addresses returns the function addresses along the path.
func (p CallPath) Addresses() []string {
	out := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = n.Address
	}
	return out
}

// CallSites returns the call-site offsets along the path, skipping nodes
// without one.
func (p CallPath) CallSites() []string {
	out := make([]string, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		if n.CallSite != "" {
			out = append(out, n.CallSite)
		}
	}
	return out
}

// Synthetic reports whether p is the fallback returned when nothing was
// found.
func (p CallPath) Synthetic() bool {
	return p.ID == SinglePathID || p.ID == SingleUpwardChainID
}

func (p *CallPath) add(n CallPathNode) {
	p.Length = n.Depth
	p.Nodes = append(p.Nodes, n)
}

// CallSequence is one direct call made by a function, numbered in call-site
// order starting at 1.
type CallSequence struct {
	ID       string         `json:"id"`
	Caller   string         `json:"caller"`
	Callee   string         `json:"callee"`
	Order    int            `json:"order"`
	CallSite string         `json:"call_site"`
	CallType graph.CallType `json:"call_type"`
}

// RecursionKind distinguishes self-calls from longer cycles.
type RecursionKind string

const (
	RecursionDirect   RecursionKind = "Direct"
	RecursionIndirect RecursionKind = "Indirect"
)

// RecursiveCall is one cycle through a function.
type RecursiveCall struct {
	FunctionName string        `json:"function_name"`
	Address      string        `json:"address,omitempty"`
	Kind         RecursionKind `json:"call_type"`
	Depth        int           `json:"depth"`

	// Cycle lists the functions along the cycle, starting and ending at
	// the function.
	Cycle []string `json:"cycle,omitempty"`
}

// CallerSequence is one direct call into a function, numbered in call-site
// order starting at 1.
type CallerSequence struct {
	ID            string `json:"id"`
	CallerName    string `json:"caller_name"`
	CallerAddress string `json:"caller_address"`
	CalleeName    string `json:"callee_name"`
	CalleeAddress string `json:"callee_address"`
	Order         int    `json:"order"`
	CallSite      string `json:"call_site"`
}

// ContextAnalysis combines the callers and callees of one function.
type ContextAnalysis struct {
	FunctionName    string           `json:"function_name"`
	UpwardChains    []CallPath       `json:"upward_chains"`
	DownwardPaths   []CallPath       `json:"downward_paths"`
	CallerSequences []CallerSequence `json:"caller_sequences"`
	Insights        []string         `json:"context_insights"`
}

// FunctionInfo identifies a function in lookup results.
type FunctionInfo struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// EnhancedCallGraph is the callee side of a function for export: the
// distinct callees within a depth, every call path, and how often each
// callee name is called directly.
type EnhancedCallGraph struct {
	Callees         []FunctionInfo   `json:"callees"`
	CallPaths       []CallPath       `json:"call_paths"`
	CallFrequencies map[string]int64 `json:"call_frequencies"`
}

// CallGraph lists the functions reaching and reached by a function.
type CallGraph struct {
	Callees []FunctionInfo `json:"callees"`
	Callers []FunctionInfo `json:"callers"`
}

// Xref is a CALLS edge touching an address.
type Xref struct {
	FromFunction string         `json:"from_function"`
	FromAddress  string         `json:"from_address"`
	ToFunction   string         `json:"to_function"`
	ToAddress    string         `json:"to_address"`
	Offset       string         `json:"offset"`
	CallType     graph.CallType `json:"call_type"`
}

// StringMatch is one fulltext hit.
type StringMatch struct {
	UID     string  `json:"uid"`
	Value   string  `json:"value"`
	Address string  `json:"address,omitempty"`
	Score   float64 `json:"score"`
}
