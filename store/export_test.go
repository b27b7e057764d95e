package store

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/binxgraph/store/storetest"
)

func TestExporterWriteJSON(t *testing.T) {
	client := storetest.NewScriptedClient().
		On("properties(n)", map[string]any{
			"labels": []any{"Function"},
			"props":  map[string]any{"uid": "h:0x10", "name": "main"},
		}).
		On("type(r)", map[string]any{
			"type": "CALLS", "from_label": "Function", "from_key": "h:0x10",
			"to_label": "Function", "to_key": "h:0x20",
			"props": map[string]any{"offset": "0x14"},
		})

	var buf bytes.Buffer
	require.NoError(t, NewExporter(client).WriteJSON(context.Background(), &buf))

	var got Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, []string{"Function"}, got.Nodes[0].Labels)
	require.Len(t, got.Relationships, 1)
	assert.Equal(t, "h:0x20", got.Relationships[0].To)
	assert.Equal(t, "0x14", got.Relationships[0].Properties["offset"])
}
