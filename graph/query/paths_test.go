package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathRequestBuild(t *testing.T) {
	cypher, params, err := PathRequest{Function: "main", Direction: Outgoing, MinHops: 1, MaxHops: 5}.Build()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(cypher, "MATCH path = (start:Function)-[:CALLS*1..5]->(end:Function) WHERE start.name = $function OR start.uid = $function RETURN length(path) AS path_length"))
	assert.Contains(t, cypher, "[rel IN relationships(path) | rel.offset] AS call_offsets")
	assert.NotContains(t, cypher, "ORDER BY")
	assert.Equal(t, map[string]any{"function": "main"}, params)
}

func TestPathRequestUpstream(t *testing.T) {
	cypher, _, err := PathRequest{
		Function:      "CreateFileW",
		Direction:     Incoming,
		MinHops:       1,
		MaxHops:       3,
		OrderByLength: true,
		Limit:         50,
	}.Build()
	require.NoError(t, err)

	assert.Contains(t, cypher, "WHERE end.name = $function OR end.uid = $function")
	assert.True(t, strings.HasSuffix(cypher, "ORDER BY path_length LIMIT 50"), cypher)
}

func TestPathRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  PathRequest
	}{
		{name: "no function", req: PathRequest{MinHops: 1, MaxHops: 2}},
		{name: "zero min", req: PathRequest{Function: "f", MinHops: 0, MaxHops: 2}},
		{name: "max below min", req: PathRequest{Function: "f", MinHops: 3, MaxHops: 2}},
		{name: "too deep", req: PathRequest{Function: "f", MinHops: 1, MaxHops: MaxHopsLimit + 1}},
		{name: "undirected", req: PathRequest{Function: "f", MinHops: 1, MaxHops: 2, Direction: Undirected}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.req.Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidHops))
		})
	}
}

func TestCycleRequestBuild(t *testing.T) {
	direct, params, err := CycleRequest{Function: "main", MinHops: 1, MaxHops: 1}.Build()
	require.NoError(t, err)
	assert.Contains(t, direct, "MATCH (f:Function)-[:CALLS]->(f) WHERE f.name = $function OR f.uid = $function")
	assert.Contains(t, direct, "RETURN DISTINCT 1 AS depth")
	assert.Equal(t, "main", params["function"])

	indirect, _, err := CycleRequest{Function: "main", MinHops: 2, MaxHops: 10}.Build()
	require.NoError(t, err)
	assert.Contains(t, indirect, "MATCH path = (f:Function)-[:CALLS*2..10]->(f)")
	assert.Contains(t, indirect, "length(path) AS depth")

	_, _, err = CycleRequest{Function: "main", MinHops: 0, MaxHops: 1}.Build()
	assert.ErrorIs(t, err, ErrInvalidHops)

	_, _, err = CycleRequest{MinHops: 1, MaxHops: 1}.Build()
	assert.ErrorIs(t, err, ErrInvalidHops)
}

func TestEdgeRequestBuild(t *testing.T) {
	out, params, err := EdgeRequest{Function: "main", Direction: Outgoing}.Build()
	require.NoError(t, err)
	assert.Contains(t, out, "WHERE caller.name = $function OR caller.uid = $function")
	assert.True(t, strings.HasSuffix(out, "ORDER BY r.offset"))
	assert.Equal(t, "main", params["function"])

	in, _, err := EdgeRequest{Function: "main", Direction: Incoming}.Build()
	require.NoError(t, err)
	assert.Contains(t, in, "WHERE callee.name = $function OR callee.uid = $function")

	_, _, err = EdgeRequest{}.Build()
	assert.Error(t, err)
}

func TestReachRequestBuild(t *testing.T) {
	out, params, err := ReachRequest{Function: "main", Direction: Outgoing, MaxHops: 3}.Build()
	require.NoError(t, err)
	assert.Equal(t, "MATCH (f:Function)-[:CALLS*1..3]->(n:Function) WHERE (f.name = $function OR f.uid = $function) "+
		"RETURN DISTINCT n.uid AS uid, n.name AS name, n.address AS address ORDER BY name", out)
	assert.Equal(t, map[string]any{"function": "main"}, params)

	scoped, params, err := ReachRequest{Function: "main", Direction: Incoming, MaxHops: 2, Binary: "a.exe"}.Build()
	require.NoError(t, err)
	assert.Contains(t, scoped, "MATCH (b:Binary)-[:CONTAINS]->(f:Function)<-[:CALLS*1..2]-(n:Function)")
	assert.Contains(t, scoped, "AND (b.filename CONTAINS $binary OR b.hash = $binary)")
	assert.Equal(t, "a.exe", params["binary"])

	_, _, err = ReachRequest{Function: "main", Direction: Outgoing}.Build()
	assert.ErrorIs(t, err, ErrInvalidHops)
	_, _, err = ReachRequest{Function: "main", Direction: Undirected, MaxHops: 1}.Build()
	assert.ErrorIs(t, err, ErrInvalidHops)
}
