package store

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/binxgraph/graph"
	"github.com/zero-day-ai/binxgraph/graph/query"
)

// GraphStatistics counts the entities of each kind in the whole store.
type GraphStatistics struct {
	Binaries  int64 `json:"binaries"`
	Functions int64 `json:"functions"`
	Strings   int64 `json:"strings"`
	Libraries int64 `json:"libraries"`
	Calls     int64 `json:"calls"`
}

// DatabaseStatistics describes the store independently of the schema.
type DatabaseStatistics struct {
	Nodes         int64            `json:"nodes"`
	Relationships int64            `json:"relationships"`
	Labels        map[string]int64 `json:"labels"`
}

// Stats runs aggregate count queries.
type Stats struct {
	client query.GraphClient
}

// NewStats creates a Stats reader.
func NewStats(client query.GraphClient) *Stats {
	return &Stats{client: client}
}

// Graph counts nodes per label and CALLS edges.
func (s *Stats) Graph(ctx context.Context) (GraphStatistics, error) {
	var st GraphStatistics
	counts := []struct {
		cypher string
		dst    *int64
	}{
		{countNodes(graph.LabelBinary), &st.Binaries},
		{countNodes(graph.LabelFunction), &st.Functions},
		{countNodes(graph.LabelString), &st.Strings},
		{countNodes(graph.LabelLibrary), &st.Libraries},
		{fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r) AS count", graph.RelCalls), &st.Calls},
	}
	for _, c := range counts {
		n, err := s.count(ctx, c.cypher)
		if err != nil {
			return GraphStatistics{}, err
		}
		*c.dst = n
	}
	return st, nil
}

// Database counts all nodes, all relationships and nodes per known label.
func (s *Stats) Database(ctx context.Context) (DatabaseStatistics, error) {
	nodes, err := s.count(ctx, "MATCH (n) RETURN count(n) AS count")
	if err != nil {
		return DatabaseStatistics{}, err
	}
	rels, err := s.count(ctx, "MATCH ()-[r]->() RETURN count(r) AS count")
	if err != nil {
		return DatabaseStatistics{}, err
	}
	st := DatabaseStatistics{Nodes: nodes, Relationships: rels, Labels: map[string]int64{}}
	for _, label := range []string{graph.LabelBinary, graph.LabelFunction, graph.LabelString, graph.LabelLibrary} {
		n, err := s.count(ctx, countNodes(label))
		if err != nil {
			return DatabaseStatistics{}, err
		}
		st.Labels[label] = n
	}
	return st, nil
}

func (s *Stats) count(ctx context.Context, cypher string) (int64, error) {
	rows, err := s.client.Query(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return query.Row(rows[0]).Int64("count"), nil
}

func countNodes(label string) string {
	return query.BuildMatch(label, "n") + " RETURN count(n) AS count"
}
