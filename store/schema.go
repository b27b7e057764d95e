package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zero-day-ai/binxgraph/graph/query"
)

// Statement is a named schema statement.
type Statement struct {
	Name   string
	Cypher string
}

// Constraints enforce one node per key.
var Constraints = []Statement{
	{"binary_hash_unique", "CREATE CONSTRAINT binary_hash_unique IF NOT EXISTS FOR (b:Binary) REQUIRE b.hash IS UNIQUE"},
	{"function_uid_unique", "CREATE CONSTRAINT function_uid_unique IF NOT EXISTS FOR (f:Function) REQUIRE f.uid IS UNIQUE"},
	{"string_uid_unique", "CREATE CONSTRAINT string_uid_unique IF NOT EXISTS FOR (s:String) REQUIRE s.uid IS UNIQUE"},
	{"library_name_unique", "CREATE CONSTRAINT library_name_unique IF NOT EXISTS FOR (l:Library) REQUIRE l.name IS UNIQUE"},
}

// Indexes back the lookup paths of package analysis.
var Indexes = []Statement{
	{"function_name", "CREATE INDEX function_name IF NOT EXISTS FOR (f:Function) ON (f.name)"},
	{"function_address", "CREATE INDEX function_address IF NOT EXISTS FOR (f:Function) ON (f.address)"},
	{"binary_filename", "CREATE INDEX binary_filename IF NOT EXISTS FOR (b:Binary) ON (b.filename)"},
	{"string_value", "CREATE INDEX string_value IF NOT EXISTS FOR (s:String) ON (s.value)"},
	{StringFulltextIndex, "CREATE FULLTEXT INDEX " + StringFulltextIndex + " IF NOT EXISTS FOR (s:String) ON EACH [s.value]"},
}

// StringFulltextIndex is the fulltext index queried by string search.
const StringFulltextIndex = "string_value_fulltext"

// Schema provisions and resets the database.
type Schema struct {
	client query.GraphClient
	logger *slog.Logger
}

// NewSchema creates a Schema that executes through client.
func NewSchema(client query.GraphClient, logger *slog.Logger) *Schema {
	if logger == nil {
		logger = slog.Default()
	}
	return &Schema{client: client, logger: logger}
}

// SchemaReport lists which statements were applied and which failed.
type SchemaReport struct {
	Applied []string          `json:"applied"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Init creates every constraint and index. An individual failure, for
// instance an edition without fulltext support, is logged and recorded
// but does not stop the remaining statements.
func (s *Schema) Init(ctx context.Context) SchemaReport {
	report := SchemaReport{Failed: map[string]string{}}
	for _, group := range [][]Statement{Constraints, Indexes} {
		for _, stmt := range group {
			if err := s.client.Execute(ctx, stmt.Cypher, nil); err != nil {
				s.logger.Warn("schema statement failed", "name", stmt.Name, "error", err)
				report.Failed[stmt.Name] = err.Error()
				continue
			}
			report.Applied = append(report.Applied, stmt.Name)
		}
	}
	s.logger.Info("schema initialized", "applied", len(report.Applied), "failed", len(report.Failed))
	return report
}

// Clear removes every node and relationship.
func (s *Schema) Clear(ctx context.Context) error {
	if err := s.client.Execute(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("clear database: %w", err)
	}
	s.logger.Info("database cleared")
	return nil
}
