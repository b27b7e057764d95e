package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/binxgraph"
	"github.com/zero-day-ai/binxgraph/analysis"
	"github.com/zero-day-ai/binxgraph/queue"
	"github.com/zero-day-ai/binxgraph/registry"
	"github.com/zero-day-ai/binxgraph/store"
	"github.com/zero-day-ai/binxgraph/store/storetest"
)

const exportDoc = `{
  "binary_info": {
    "name": "tool.elf",
    "file_size": 2048,
    "file_type": {"type": "ELF64", "architecture": "x86_64"},
    "hashes": {"sha256": "feed01"}
  },
  "functions": [
    {"name": "main", "address": "0x401000"},
    {"name": "read_input", "address": "0x401100"}
  ],
  "calls": [
    {"from_address": "0x401000", "to_address": "0x401100", "offset": "0x401010"}
  ]
}`

type harness struct {
	app    *app
	gc     *storetest.ScriptedClient
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	redis  *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gc:     storetest.NewScriptedClient(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		redis:  miniredis.RunT(t),
	}
	h.app = newApp(h.stdout, h.stderr)
	h.app.connect = func(_ context.Context, opts ...binxgraph.Option) (*binxgraph.Client, error) {
		return binxgraph.New(h.gc, opts...)
	}
	h.app.newQueue = func() (queue.Client, error) {
		return queue.NewRedisClient(queue.RedisOptions{URL: "redis://" + h.redis.Addr()})
	}
	return h
}

func (h *harness) run(t *testing.T, ctx context.Context, args ...string) error {
	t.Helper()
	cmd := newRootCmd(h.app)
	cfg := filepath.Join(t.TempDir(), "absent.yaml")
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	return cmd.ExecuteContext(ctx)
}

func writeExport(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"cancelled", fmt.Errorf("run: %w", context.Canceled), ExitCancelled},
		{"import failed", errImportFailed, ExitImportFailed},
		{"config", fmt.Errorf("%w: bad", errConfig), ExitConfigError},
		{"validation", &binxgraph.Error{Kind: binxgraph.KindValidation}, ExitInvalidInput},
		{"not found", fmt.Errorf("q: %w", analysis.ErrNotFound), ExitNotFound},
		{"storage", &binxgraph.Error{Kind: binxgraph.KindStorage}, ExitDatabaseError},
		{"invalid depth", analysis.ErrInvalidDepth, ExitInvalidInput},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, context.Background(), "--output", "yaml", "database", "stats")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, exitCode(err))
}

func TestImportJSON(t *testing.T) {
	h := newHarness(t)
	path := writeExport(t, t.TempDir(), "tool.json", exportDoc)

	require.NoError(t, h.run(t, context.Background(), "import", "json", path))
	assert.Contains(t, h.stdout.String(), "Imported "+path+" (feed01)")
	assert.NotEmpty(t, h.gc.CallsContaining("MERGE (b:Binary {hash: $hash})"))
}

func TestImportJSONFailures(t *testing.T) {
	dir := t.TempDir()

	h := newHarness(t)
	err := h.run(t, context.Background(), "import", "json", writeExport(t, dir, "bad.json", "{oops"))
	assert.Equal(t, ExitInvalidInput, exitCode(err))

	h = newHarness(t)
	noHash := `{"binary_info": {"name": "x"}, "functions": []}`
	err = h.run(t, context.Background(), "--output", "json", "import", "json", writeExport(t, dir, "nohash.json", noHash))
	assert.Equal(t, ExitImportFailed, exitCode(err))

	var res map[string]any
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &res), h.stdout.String())
	assert.Equal(t, false, res["success"])
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a.json", exportDoc)
	writeExport(t, dir, "skip.txt", "not an export")

	h := newHarness(t)
	require.NoError(t, h.run(t, context.Background(), "import", "dir", dir))
	assert.Contains(t, h.stdout.String(), "Imported 1 of 1 files")

	h = newHarness(t)
	require.NoError(t, h.run(t, context.Background(), "import", "dir", dir, "-p", "*.bin"))
	assert.Contains(t, h.stdout.String(), "No files matching")
}

func TestImportEnqueue(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a.json", exportDoc)
	writeExport(t, dir, "b.json", exportDoc)

	h := newHarness(t)
	require.NoError(t, h.run(t, context.Background(), "-o", "json", "import", "enqueue", dir))

	var out map[string]any
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.EqualValues(t, 2, out["files"])
	assert.NotEmpty(t, out["job_id"])

	qc, err := h.app.newQueue()
	require.NoError(t, err)
	defer qc.Close()
	n, err := qc.Len(context.Background(), queue.DefaultQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestWorkerDrainsQueue(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a.json", exportDoc)

	h := newHarness(t)
	require.NoError(t, h.run(t, context.Background(), "import", "enqueue", dir))

	qc, err := h.app.newQueue()
	require.NoError(t, err)
	defer qc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.run(t, ctx, "worker", "--id", "w-test") }()

	assert.Eventually(t, func() bool {
		n, err := qc.Len(context.Background(), queue.DefaultQueue)
		return err == nil && n == 0 && len(h.gc.CallsContaining("MERGE (b:Binary {hash: $hash})")) > 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerServesHealth(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.run(t, ctx, "worker", "--id", "w-health", "--health-addr", addr) }()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	hc := grpc_health_v1.NewHealthClient(conn)

	assert.Eventually(t, func() bool {
		cctx, ccancel := context.WithTimeout(context.Background(), time.Second)
		defer ccancel()
		resp, err := hc.Check(cctx, &grpc_health_v1.HealthCheckRequest{Service: queue.HealthService})
		return err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestPrintInstancesShowsEndpoint(t *testing.T) {
	var buf bytes.Buffer
	printInstances(&buf, []registry.Instance{{
		Kind: registry.KindWorker, Name: queue.DefaultQueue, InstanceID: "w1",
		Version: "dev", Endpoint: "10.0.0.5:9090", StartedAt: time.Unix(0, 0).UTC(),
	}})
	assert.Contains(t, buf.String(), "ENDPOINT")
	assert.Contains(t, buf.String(), "10.0.0.5:9090")
}

func TestWorkersRequiresEtcd(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, context.Background(), "workers")
	assert.Equal(t, ExitConfigError, exitCode(err))
}

func TestQueryCallPath(t *testing.T) {
	h := newHarness(t)
	h.gc.On("WHERE start.name", map[string]any{
		"path_length":    int64(1),
		"node_names":     []any{"main", "read_input"},
		"node_addresses": []any{"0x401000", "0x401100"},
		"call_offsets":   []any{"0x401010"},
		"call_types":     []any{"Direct"},
	})

	require.NoError(t, h.run(t, context.Background(), "-o", "json", "query", "callpath", "main", "--depth", "2"))
	var paths []analysis.CallPath
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &paths), h.stdout.String())
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"main", "read_input"}, paths[0].Names())

	h.stdout.Reset()
	require.NoError(t, h.run(t, context.Background(), "-o", "json", "query", "callpath", "main", "--where", "length > 5"))
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &paths))
	assert.Empty(t, paths)
}

func TestQueryErrors(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, context.Background(), "query", "callpath", "main", "--depth", "11")
	assert.Equal(t, ExitInvalidInput, exitCode(err))

	err = h.run(t, context.Background(), "query", "callpath", "main", "--where", "length >")
	assert.Equal(t, ExitInvalidInput, exitCode(err))

	err = h.run(t, context.Background(), "query", "binary", "missing")
	assert.Equal(t, ExitNotFound, exitCode(err))

	h.gc.Fail("MATCH (f:Function) WHERE", store.ErrQueryFailed)
	err = h.run(t, context.Background(), "query", "functions", "main")
	assert.Equal(t, ExitDatabaseError, exitCode(err))
}

func TestQuerySequencesText(t *testing.T) {
	h := newHarness(t)
	h.gc.On("WHERE caller.name",
		map[string]any{"caller_name": "main", "callee_name": "b", "call_site": "0x20", "call_type": "Direct"},
		map[string]any{"caller_name": "main", "callee_name": "a", "call_site": "0x10", "call_type": "Direct"},
	)
	require.NoError(t, h.run(t, context.Background(), "query", "sequences", "main"))
	out := h.stdout.String()
	assert.Contains(t, out, "ORDER")
	assert.Less(t, bytes.Index([]byte(out), []byte("0x10")), bytes.Index([]byte(out), []byte("0x20")))
}

func TestDatabaseStats(t *testing.T) {
	h := newHarness(t)
	h.gc.On("count(", map[string]any{"count": int64(7)})

	require.NoError(t, h.run(t, context.Background(), "-o", "json", "db", "stats"))
	var out databaseStats
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out), h.stdout.String())
	assert.Equal(t, int64(7), out.Graph.Functions)
}

func TestDatabaseClearRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, context.Background(), "database", "clear")
	assert.Equal(t, ExitInvalidInput, exitCode(err))
	assert.Empty(t, h.gc.CallsContaining("DETACH DELETE"))

	require.NoError(t, h.run(t, context.Background(), "database", "clear", "--yes"))
	assert.NotEmpty(t, h.gc.CallsContaining("DETACH DELETE"))
}

func TestDatabaseExportToFile(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, h.run(t, context.Background(), "database", "export", "--file", file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodes"`)
}
