package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/binxgraph/address"
	"github.com/zero-day-ai/binxgraph/graph"
	"github.com/zero-day-ai/binxgraph/store/storetest"
)

func TestFindFunctions(t *testing.T) {
	client := storetest.NewScriptedClient().On("MATCH (f:Function) WHERE",
		map[string]any{"uid": "h:0x10", "name": "main", "address": "0x10", "type": "Internal", "size": int64(64)},
		map[string]any{"uid": "imp:kernel32.dll:CreateFileW", "name": "CreateFileW", "type": "Import", "size": int64(-1)},
	)
	fns, err := NewAnalyzer(client).FindFunctions(context.Background(), FunctionQuery{Pattern: "m"})
	require.NoError(t, err)
	require.Len(t, fns, 2)

	require.NotNil(t, fns[0].Size)
	assert.Equal(t, uint64(64), *fns[0].Size)
	assert.Equal(t, graph.FunctionInternal, fns[0].Type)
	assert.Nil(t, fns[1].Size)
	assert.Equal(t, graph.FunctionImport, fns[1].Type)

	call := client.Calls()[0]
	assert.Contains(t, call.Cypher, "f.name CONTAINS $pattern OR f.uid CONTAINS $pattern")
	assert.Contains(t, call.Cypher, "LIMIT 100")
	assert.Equal(t, "m", call.Params["pattern"])
}

func TestFindFunctionsInBinary(t *testing.T) {
	client := storetest.NewScriptedClient()
	_, err := NewAnalyzer(client).FindFunctions(context.Background(), FunctionQuery{Pattern: "main", Binary: "a.exe", Limit: 5})
	require.NoError(t, err)

	call := client.Calls()[0]
	assert.Contains(t, call.Cypher, "MATCH (b:Binary)-[:CONTAINS]->(f:Function)")
	assert.Contains(t, call.Cypher, "AND (b.filename CONTAINS $binary OR b.hash = $binary)")
	assert.Contains(t, call.Cypher, "LIMIT 5")
	assert.Equal(t, "a.exe", call.Params["binary"])
}

func TestFindBinary(t *testing.T) {
	client := storetest.NewScriptedClient().On("MATCH (b:Binary)", map[string]any{
		"hash": "abc123", "filename": "a.exe", "file_path": "/a.exe",
		"file_size": int64(4096), "format": "Elf", "arch": "x86_64",
	})
	b, err := NewAnalyzer(client).FindBinary(context.Background(), "a.exe")
	require.NoError(t, err)
	assert.Equal(t, graph.Binary{
		Hash: "abc123", Filename: "a.exe", FilePath: "/a.exe",
		FileSize: 4096, Format: graph.FormatELF, Arch: "x86_64",
	}, b)

	_, err = NewAnalyzer(storetest.NewScriptedClient()).FindBinary(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCallGraph(t *testing.T) {
	client := storetest.NewScriptedClient().
		On("-[:CALLS*1..2]->(n:Function)", map[string]any{"uid": "h:0x20", "name": "callee"}).
		On("<-[:CALLS*1..2]-(n:Function)", map[string]any{"uid": "h:0x5", "name": "caller", "address": "0x5"})

	cg, err := NewAnalyzer(client).CallGraph(context.Background(), "main", "abc123", 2)
	require.NoError(t, err)
	assert.Equal(t, []FunctionInfo{{UID: "h:0x20", Name: "callee"}}, cg.Callees)
	assert.Equal(t, []FunctionInfo{{UID: "h:0x5", Name: "caller", Address: "0x5"}}, cg.Callers)

	for _, c := range client.Calls() {
		assert.Contains(t, c.Cypher, "(b:Binary)-[:CONTAINS]->")
	}
}

func TestXrefs(t *testing.T) {
	client := storetest.NewScriptedClient().On("from.address = $address",
		map[string]any{"from_function": "b", "to_function": "main", "offset": "0x100", "call_type": "Direct"},
		map[string]any{"from_function": "main", "to_function": "c", "offset": "0x20", "call_type": "indirect"},
	)
	xrefs, err := NewAnalyzer(client).Xrefs(context.Background(), "0X1000", "")
	require.NoError(t, err)
	require.Len(t, xrefs, 2)
	assert.Equal(t, "0x20", xrefs[0].Offset)
	assert.Equal(t, graph.CallIndirect, xrefs[0].CallType)
	assert.Equal(t, "0x100", xrefs[1].Offset)

	assert.Equal(t, "0x1000", client.Calls()[0].Params["address"])

	_, err = NewAnalyzer(client).Xrefs(context.Background(), "  ", "")
	assert.ErrorIs(t, err, address.ErrUnparseable)
}

func TestSearchStrings(t *testing.T) {
	client := storetest.NewScriptedClient().On("db.index.fulltext.queryNodes",
		map[string]any{"uid": "str:abc123:ff", "value": "http://evil.example/a", "score": 2.5},
	)
	a := NewAnalyzer(client)

	hits, err := a.SearchStrings(context.Background(), StringQuery{Text: "evil.example/a", BinaryHash: "abc123"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 2.5, hits[0].Score, 1e-9)

	call := client.Calls()[0]
	assert.Equal(t, `*evil.example\/a*`, call.Params["text"])
	assert.Equal(t, "str:abc123:", call.Params["prefix"])
	assert.Equal(t, "string_value_fulltext", call.Params["index"])
	assert.Contains(t, call.Cypher, "WHERE node.uid STARTS WITH $prefix")

	_, err = a.SearchStrings(context.Background(), StringQuery{Text: "value:http*", Raw: true})
	require.NoError(t, err)
	call = client.Calls()[1]
	assert.Equal(t, "value:http*", call.Params["text"])
	assert.NotContains(t, call.Cypher, "STARTS WITH")

	_, err = a.SearchStrings(context.Background(), StringQuery{})
	assert.Error(t, err)
}

func TestEscapeLucene(t *testing.T) {
	assert.Equal(t, `a\+b\ \(c\)`, escapeLucene("a+b (c)"))
	assert.Equal(t, `C\:\\Windows`, escapeLucene(`C:\Windows`))
}
