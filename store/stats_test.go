package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/binxgraph/store/storetest"
)

func count(n int64) map[string]any { return map[string]any{"count": n} }

func TestStatsGraph(t *testing.T) {
	client := storetest.NewScriptedClient().
		On("(n:Binary)", count(2)).
		On("(n:Function)", count(40)).
		On("(n:String)", count(12)).
		On("(n:Library)", count(3)).
		On("[r:CALLS]", count(55))

	st, err := NewStats(client).Graph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GraphStatistics{Binaries: 2, Functions: 40, Strings: 12, Libraries: 3, Calls: 55}, st)
}

func TestStatsDatabase(t *testing.T) {
	client := storetest.NewScriptedClient().
		On("MATCH (n) RETURN count(n)", count(100)).
		On("MATCH ()-[r]->()", count(250)).
		On("(n:Function)", count(90))

	st, err := NewStats(client).Database(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), st.Nodes)
	assert.Equal(t, int64(250), st.Relationships)
	assert.Equal(t, int64(90), st.Labels["Function"])
	assert.Equal(t, int64(0), st.Labels["Binary"])
}

func TestStatsError(t *testing.T) {
	client := storetest.NewScriptedClient().Fail("count", errors.New("down"))
	_, err := NewStats(client).Graph(context.Background())
	assert.Error(t, err)
}
