package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/binxgraph/analysis"
	"github.com/zero-day-ai/binxgraph/store"
	"github.com/zero-day-ai/binxgraph/store/storetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func pathRow(names, addrs, offsets, types []any) map[string]any {
	return map[string]any{
		"path_length":    int64(len(names) - 1),
		"node_names":     names,
		"node_addresses": addrs,
		"call_offsets":   offsets,
		"call_types":     types,
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type fixedHealth store.HealthStatus

func (f fixedHealth) Health(context.Context) store.HealthStatus { return store.HealthStatus(f) }

func TestHandleHealth(t *testing.T) {
	s := NewServer(analysis.NewAnalyzer(storetest.NewScriptedClient()), WithVersion("1.2.3"))
	rec := get(t, s.Handler(), "/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, store.StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	s = NewServer(analysis.NewAnalyzer(storetest.NewScriptedClient()),
		WithHealth(fixedHealth(store.Unhealthy("connection refused"))))
	rec = get(t, s.Handler(), "/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", decode[HealthResponse](t, rec).Store.Message)
}

func TestHandleStats(t *testing.T) {
	client := storetest.NewScriptedClient().On("count(", map[string]any{"count": int64(4)})
	s := NewServer(analysis.NewAnalyzer(client), WithStats(store.NewStats(client)))

	rec := get(t, s.Handler(), "/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[store.GraphStatistics](t, rec)
	assert.Equal(t, int64(4), st.Functions)
	assert.Equal(t, int64(4), st.Calls)

	rec = get(t, NewServer(analysis.NewAnalyzer(client)).Handler(), "/v1/stats")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePaths(t *testing.T) {
	client := storetest.NewScriptedClient().On("WHERE start.name",
		pathRow([]any{"main", "parse"}, []any{"0x1000", "0x1100"}, []any{"0x10"}, []any{"Direct"}),
		pathRow([]any{"main", "parse", "read"}, []any{"0x1000", "0x1100", "0x1200"}, []any{"0x10", "0x24"}, []any{"Direct", "Direct"}),
	)
	s := NewServer(analysis.NewAnalyzer(client))

	rec := get(t, s.Handler(), "/v1/functions/main/paths?depth=4")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[PathsResponse](t, rec)
	assert.Equal(t, "main", resp.Function)
	assert.Equal(t, 4, resp.Depth)
	assert.Equal(t, 2, resp.Count)
	assert.Contains(t, client.Calls()[0].Cypher, "[:CALLS*1..4]")

	rec = get(t, s.Handler(), `/v1/functions/main/paths?where=length+%3E+1+%26%26+%22read%22+in+names`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[PathsResponse](t, rec)
	assert.Equal(t, analysis.DefaultDepth, resp.Depth)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, []string{"main", "parse", "read"}, resp.Paths[0].Names())
	assert.Equal(t, `length > 1 && "read" in names`, resp.Filter)
}

func TestHandlePathsErrors(t *testing.T) {
	s := NewServer(analysis.NewAnalyzer(storetest.NewScriptedClient()))

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/v1/functions/main/paths?depth=11", http.StatusBadRequest, "INVALID_DEPTH"},
		{"/v1/functions/main/paths?depth=x", http.StatusBadRequest, "INVALID_REQUEST"},
		{"/v1/functions/main/upward?where=length", http.StatusBadRequest, "INVALID_FILTER"},
		{"/v1/functions/main/context?depth=-1", http.StatusBadRequest, "INVALID_DEPTH"},
		{"/v1/functions/main/callgraph?enhanced=maybe", http.StatusBadRequest, "INVALID_REQUEST"},
		{"/v1/binaries/missing", http.StatusNotFound, "NOT_FOUND"},
		{"/v1/xrefs/%20", http.StatusBadRequest, "INVALID_ADDRESS"},
		{"/v1/strings", http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, s.Handler(), tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestHandleStoreFailure(t *testing.T) {
	client := storetest.NewScriptedClient().Fail("WHERE caller.name", errors.New("connection reset"))
	s := NewServer(analysis.NewAnalyzer(client))

	rec := get(t, s.Handler(), "/v1/functions/main/sequences")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "QUERY_FAILED", resp.Code)
	assert.Contains(t, resp.Error, "connection reset")
}

func TestHandleSequences(t *testing.T) {
	client := storetest.NewScriptedClient().On("WHERE caller.name",
		map[string]any{"caller_name": "main", "callee_name": "b", "call_site": "0x20", "call_type": "Direct"},
		map[string]any{"caller_name": "main", "callee_name": "a", "call_site": "0x8", "call_type": "Direct"},
	)
	s := NewServer(analysis.NewAnalyzer(client))

	rec := get(t, s.Handler(), "/v1/functions/main/sequences")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SequencesResponse](t, rec)
	require.Len(t, resp.Sequences, 2)
	assert.Equal(t, "a", resp.Sequences[0].Callee)
	assert.Equal(t, "b", resp.Sequences[1].Callee)
}

func TestHandleXrefs(t *testing.T) {
	client := storetest.NewScriptedClient().On("from.address = $address",
		map[string]any{"from_function": "main", "to_function": "c", "offset": "0x20", "call_type": "Direct"},
	)
	s := NewServer(analysis.NewAnalyzer(client))

	rec := get(t, s.Handler(), "/v1/xrefs/4096")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[XrefsResponse](t, rec)
	assert.Equal(t, "0x1000", resp.Address)
	require.Len(t, resp.Xrefs, 1)
	assert.Equal(t, "0x1000", client.Calls()[0].Params["address"])
}

func TestHandleStrings(t *testing.T) {
	client := storetest.NewScriptedClient().On("db.index.fulltext.queryNodes",
		map[string]any{"uid": "str:abc:01", "value": "GetProcAddress", "score": 1.5},
	)
	s := NewServer(analysis.NewAnalyzer(client))

	rec := get(t, s.Handler(), "/v1/strings?q=ProcAddr&binary=abc&limit=5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[StringsResponse](t, rec)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "GetProcAddress", resp.Matches[0].Value)

	call := client.Calls()[0]
	assert.Equal(t, "*ProcAddr*", call.Params["text"])
	assert.Equal(t, "str:abc:", call.Params["prefix"])
	assert.Contains(t, call.Cypher, "LIMIT 5")
}

func TestHandleFunctionsAndBinary(t *testing.T) {
	client := storetest.NewScriptedClient().
		On("MATCH (f:Function) WHERE", map[string]any{"uid": "h:0x10", "name": "main", "address": "0x10", "type": "Internal"}).
		On("MATCH (b:Binary)", map[string]any{"hash": "h", "filename": "a.exe", "format": "PE", "arch": "x86"})
	s := NewServer(analysis.NewAnalyzer(client))

	rec := get(t, s.Handler(), "/v1/functions?pattern=ma")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[FunctionsResponse](t, rec).Count)

	rec = get(t, s.Handler(), "/v1/binaries/a.exe")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"filename":"a.exe"`)
}

func TestHandleCallGraph(t *testing.T) {
	client := storetest.NewScriptedClient().
		On("count(*)", map[string]any{"callee_name": "parse", "frequency": int64(3)}).
		On("<-[:CALLS*1..3]-(n:Function)", map[string]any{"uid": "h:0x5", "name": "start"}).
		On("-[:CALLS*1..3]->(n:Function)", map[string]any{"uid": "h:0x20", "name": "parse"})
	s := NewServer(analysis.NewAnalyzer(client))

	rec := get(t, s.Handler(), "/v1/functions/main/callgraph")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cg := decode[analysis.CallGraph](t, rec)
	assert.Equal(t, "parse", cg.Callees[0].Name)
	assert.Equal(t, "start", cg.Callers[0].Name)

	rec = get(t, s.Handler(), "/v1/functions/main/callgraph?enhanced=true")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ecg := decode[analysis.EnhancedCallGraph](t, rec)
	assert.Equal(t, int64(3), ecg.CallFrequencies["parse"])
}

func TestResponsesAreCached(t *testing.T) {
	client := storetest.NewScriptedClient().On("WHERE caller.name",
		map[string]any{"caller_name": "main", "callee_name": "a", "call_site": "0x8", "call_type": "Direct"},
	)
	cache, err := NewCache(100, time.Minute)
	require.NoError(t, err)
	defer cache.Close()
	s := NewServer(analysis.NewAnalyzer(client), WithCache(cache))

	rec := get(t, s.Handler(), "/v1/functions/main/sequences")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	cache.Wait()

	rec = get(t, s.Handler(), "/v1/functions/main/sequences")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Len(t, client.Calls(), 1)
	assert.Len(t, decode[SequencesResponse](t, rec).Sequences, 1)

	cache.Clear()
	rec = get(t, s.Handler(), "/v1/functions/main/sequences")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Len(t, client.Calls(), 2)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("binxgraph_up 1\n"))
	})
	s := NewServer(analysis.NewAnalyzer(storetest.NewScriptedClient()), WithMetrics(metrics))

	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "binxgraph_up 1\n", rec.Body.String())
}

func TestListenAndServeStops(t *testing.T) {
	s := NewServer(analysis.NewAnalyzer(storetest.NewScriptedClient()))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0", time.Second) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
