package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zero-day-ai/binxgraph/graph/query"
)

// ExportNode is one node of an export.
type ExportNode struct {
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// ExportRelationship is one edge of an export, with each endpoint named by
// its label and key value.
type ExportRelationship struct {
	Type       string         `json:"type"`
	FromLabel  string         `json:"from_label"`
	From       string         `json:"from"`
	ToLabel    string         `json:"to_label"`
	To         string         `json:"to"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Export is a full dump of the graph.
type Export struct {
	Nodes         []ExportNode         `json:"nodes"`
	Relationships []ExportRelationship `json:"relationships"`
}

const (
	exportNodesCypher = "MATCH (n) RETURN labels(n) AS labels, properties(n) AS props"
	exportEdgesCypher = "MATCH (a)-[r]->(b) RETURN type(r) AS type, " +
		"head(labels(a)) AS from_label, coalesce(a.uid, a.hash, a.name) AS from_key, " +
		"head(labels(b)) AS to_label, coalesce(b.uid, b.hash, b.name) AS to_key, " +
		"properties(r) AS props"
)

// Exporter reads the whole graph.
type Exporter struct {
	client query.GraphClient
}

// NewExporter creates an Exporter.
func NewExporter(client query.GraphClient) *Exporter {
	return &Exporter{client: client}
}

// Collect reads every node and relationship.
func (e *Exporter) Collect(ctx context.Context) (Export, error) {
	nodeRows, err := e.client.Query(ctx, exportNodesCypher, nil)
	if err != nil {
		return Export{}, fmt.Errorf("export nodes: %w", err)
	}
	edgeRows, err := e.client.Query(ctx, exportEdgesCypher, nil)
	if err != nil {
		return Export{}, fmt.Errorf("export relationships: %w", err)
	}

	out := Export{
		Nodes:         make([]ExportNode, 0, len(nodeRows)),
		Relationships: make([]ExportRelationship, 0, len(edgeRows)),
	}
	for _, raw := range nodeRows {
		row := query.Row(raw)
		props, _ := row["props"].(map[string]any)
		out.Nodes = append(out.Nodes, ExportNode{Labels: row.Strings("labels"), Properties: props})
	}
	for _, raw := range edgeRows {
		row := query.Row(raw)
		props, _ := row["props"].(map[string]any)
		out.Relationships = append(out.Relationships, ExportRelationship{
			Type:       row.String("type"),
			FromLabel:  row.String("from_label"),
			From:       row.String("from_key"),
			ToLabel:    row.String("to_label"),
			To:         row.String("to_key"),
			Properties: props,
		})
	}
	return out, nil
}

// WriteJSON writes the export as indented JSON.
func (e *Exporter) WriteJSON(ctx context.Context, w io.Writer) error {
	export, err := e.Collect(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}
