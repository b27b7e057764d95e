package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowAccessors(t *testing.T) {
	row := Row{
		"name":    "main",
		"count":   int64(7),
		"small":   3,
		"float":   2.0,
		"nil":     nil,
		"names":   []any{"a", nil, "c"},
		"typed":   []string{"x"},
		"numbers": 42,
	}

	assert.Equal(t, "main", row.String("name"))
	assert.Equal(t, "", row.String("missing"))
	assert.Equal(t, "", row.String("numbers"))
	assert.Equal(t, "N/A", row.StringOr("nil", "N/A"))
	assert.Equal(t, int64(7), row.Int64("count"))
	assert.Equal(t, int64(3), row.Int64("small"))
	assert.Equal(t, int64(2), row.Int64("float"))
	assert.Equal(t, int64(0), row.Int64("name"))
	assert.Equal(t, []string{"a", "", "c"}, row.Strings("names"))
	assert.Equal(t, []string{"x"}, row.Strings("typed"))
	assert.Nil(t, row.Strings("name"))
	assert.InDelta(t, 2.0, row.Float64("float"), 1e-9)
	assert.InDelta(t, 7.0, row.Float64("count"), 1e-9)
	assert.True(t, row.Has("name"))
	assert.False(t, row.Has("nil"))
	assert.False(t, row.Has("missing"))
}

func TestToInt64Overflow(t *testing.T) {
	_, err := toInt64(uint64(1 << 63))
	assert.Error(t, err)
}
