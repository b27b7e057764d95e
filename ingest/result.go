package ingest

import "time"

// DefaultTopErrors is the number of errors shown by summaries.
const DefaultTopErrors = 10

// Statistics counts what one import persisted.
type Statistics struct {
	Binaries int `json:"binaries"`

	// Functions counts distinct functions from the functions section.
	Functions int `json:"functions"`

	// ImportedFunctions and ExportedFunctions count the Function nodes
	// synthesized from the imports and exports sections.
	ImportedFunctions int `json:"imported_functions"`
	ExportedFunctions int `json:"exported_functions"`

	// FunctionNodes counts distinct Function nodes written. An export at
	// the address of a listed function, or an import repeated across
	// batches, lands on the same node and is counted once.
	FunctionNodes int `json:"function_nodes"`

	Strings            int `json:"strings"`
	Libraries          int `json:"libraries"`
	CallsRelationships int `json:"calls_relationships"`
}

// TotalNodes is the number of distinct nodes written. Summed statistics
// add per-import totals.
func (s Statistics) TotalNodes() int {
	return s.Binaries + s.FunctionNodes + s.Strings + s.Libraries
}

// Add accumulates other into s.
func (s *Statistics) Add(other Statistics) {
	s.Binaries += other.Binaries
	s.Functions += other.Functions
	s.ImportedFunctions += other.ImportedFunctions
	s.ExportedFunctions += other.ExportedFunctions
	s.FunctionNodes += other.FunctionNodes
	s.Strings += other.Strings
	s.Libraries += other.Libraries
	s.CallsRelationships += other.CallsRelationships
}

// Result summarizes one import.
type Result struct {
	// RunID identifies the import for log correlation.
	RunID string `json:"run_id"`

	// Source is the file the document came from, when known.
	Source string `json:"source,omitempty"`

	// BinaryHash is the key of the imported binary, when it was identified.
	BinaryHash string `json:"binary_hash,omitempty"`

	// Success is true when no errors were recorded.
	Success bool `json:"success"`

	// Aborted is true when the import stopped before the calls phase.
	Aborted bool `json:"aborted"`

	Statistics Statistics `json:"statistics"`
	TotalNodes int        `json:"total_nodes"`

	// SkippedCalls counts call records whose endpoints did not resolve.
	// They are diagnostics, not errors.
	SkippedCalls int `json:"skipped_calls"`

	// Errors holds every recoverable failure in the order it occurred.
	Errors []string `json:"errors"`

	Duration time.Duration `json:"duration"`
}

// TopErrors returns at most n errors for display. len(r.Errors) remains
// the true count.
func (r Result) TopErrors(n int) []string {
	if n < 0 || len(r.Errors) <= n {
		return r.Errors
	}
	return r.Errors[:n]
}

// ErrorCount returns the total number of recorded errors.
func (r Result) ErrorCount() int {
	return len(r.Errors)
}
