package binxgraph

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/binxgraph/store"
	"github.com/zero-day-ai/binxgraph/store/storetest"
)

const sampleDoc = `{
  "binary_info": {
    "name": "sample.exe",
    "file_path": "/samples/sample.exe",
    "file_size": 4096,
    "file_type": {"type": "PE32+", "architecture": "x86_64"},
    "hashes": {"sha256": "abc123"}
  },
  "functions": [
    {"name": "main", "address": "0x1000"},
    {"name": "parse", "address": "0x1100"}
  ],
  "calls": [
    {"from_address": "0x1000", "to_address": "0x1100", "offset": "0x10"}
  ]
}`

func TestClientImportJSON(t *testing.T) {
	gc := storetest.NewScriptedClient()
	client, err := New(gc)
	require.NoError(t, err)

	res, err := client.ImportJSON(context.Background(), []byte(sampleDoc))
	require.NoError(t, err)
	assert.True(t, res.Success, res.Errors)
	assert.Equal(t, "abc123", res.BinaryHash)
	assert.Equal(t, 3, res.TotalNodes)
	assert.Equal(t, 1, res.Statistics.CallsRelationships)

	assert.NotEmpty(t, gc.CallsContaining("MERGE (b:Binary {hash: $hash})"))
	assert.NotEmpty(t, gc.CallsContaining("MERGE (a)-[r:CALLS]->(b)"))
}

func TestClientImportMalformed(t *testing.T) {
	client, err := New(storetest.NewScriptedClient())
	require.NoError(t, err)

	_, err = client.ImportJSON(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, &Error{Kind: KindValidation, Op: "Client.ImportJSON"})
}

func TestClientImportFileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(sampleDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	client, err := New(storetest.NewScriptedClient(), WithBatchSize(10))
	require.NoError(t, err)

	res, err := client.ImportFile(context.Background(), filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = client.ImportFile(context.Background(), filepath.Join(dir, "absent.json"))
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, filepath.Join(dir, "absent.json"), e.Context["path"])

	dres, err := client.ImportDirectory(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 1, dres.Files)
	assert.Equal(t, 1, dres.Succeeded)

	_, err = client.ImportDirectory(context.Background(), dir, "[")
	assert.ErrorIs(t, err, &Error{Kind: KindValidation})
}

func TestClientStoreFailures(t *testing.T) {
	gc := storetest.NewScriptedClient().
		Fail("DETACH DELETE", store.ErrWriteFailed).
		Fail("count(", store.ErrQueryFailed)
	client, err := New(gc)
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, client.Clear(ctx), &Error{Kind: KindStorage, Op: "Client.Clear"})

	_, err = client.GraphStatistics(ctx)
	assert.ErrorIs(t, err, store.ErrQueryFailed)
	assert.Equal(t, KindStorage, KindOf(err))

	_, err = client.DatabaseStatistics(ctx)
	assert.Equal(t, KindStorage, KindOf(err))
}

func TestClientMaintenance(t *testing.T) {
	gc := storetest.NewScriptedClient().On("count(", map[string]any{"count": int64(2)})
	client, err := New(gc)
	require.NoError(t, err)
	ctx := context.Background()

	report := client.InitSchema(ctx)
	assert.NotEmpty(t, report.Applied)
	assert.Empty(t, report.Failed)

	st, err := client.GraphStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Binaries)

	var buf bytes.Buffer
	require.NoError(t, client.Export(ctx, &buf))
	assert.Contains(t, buf.String(), `"nodes"`)

	assert.True(t, client.Health(ctx).IsHealthy())
	assert.Same(t, gc, client.Graph())
	assert.NotNil(t, client.Analyzer())
	assert.NotNil(t, client.Importer())
	assert.NotNil(t, client.Stats())
	assert.NoError(t, client.Close(ctx))
}

func TestOpenInvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), store.Config{})
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.True(t, errors.Is(err, store.ErrInvalidConfig))
}
