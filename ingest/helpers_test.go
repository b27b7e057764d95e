package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/binxgraph/store/storetest"
)

const testHash = "abc123"

// doc builds an export around a minimal binary_info, replacing or adding
// the given sections.
func doc(t *testing.T, sections map[string]any) []byte {
	t.Helper()
	d := map[string]any{
		"binary_info": map[string]any{
			"name":      "sample.exe",
			"file_path": "/samples/sample.exe",
			"file_size": 4096,
			"file_type": map[string]any{"type": "PE32+", "architecture": "x86_64"},
			"hashes":    map[string]any{"sha256": testHash},
		},
	}
	for k, v := range sections {
		d[k] = v
	}
	data, err := json.Marshal(d)
	require.NoError(t, err)
	return data
}

func newTestImporter(t *testing.T, opts ...Option) (*Importer, *storetest.Graph) {
	t.Helper()
	g := storetest.NewGraph()
	im, err := NewImporter(g, opts...)
	require.NoError(t, err)
	return im, g
}
