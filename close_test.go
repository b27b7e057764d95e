package binxgraph

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCloser struct {
	closeErr   error
	closeCalls int
}

func (m *mockCloser) Close() error {
	m.closeCalls++
	return m.closeErr
}

func TestCloseWithLog(t *testing.T) {
	tests := []struct {
		name    string
		closer  *mockCloser
		wantLog []string
	}{
		{name: "success", closer: &mockCloser{}},
		{
			name:    "failure",
			closer:  &mockCloser{closeErr: errors.New("close failed: resource busy")},
			wantLog: []string{"failed to close resource", "export file", "close failed", "level=WARN"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			CloseWithLog(tt.closer, slog.New(slog.NewTextHandler(&buf, nil)), "export file")

			assert.Equal(t, 1, tt.closer.closeCalls)
			if len(tt.wantLog) == 0 {
				assert.Empty(t, buf.String())
			}
			for _, want := range tt.wantLog {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestCloseWithLogNil(t *testing.T) {
	var buf bytes.Buffer
	CloseWithLog(nil, slog.New(slog.NewTextHandler(&buf, nil)), "nothing")
	assert.Empty(t, buf.String())

	closer := &mockCloser{closeErr: errors.New("test error")}
	require.NotPanics(t, func() { CloseWithLog(closer, nil, "resource") })
	assert.Equal(t, 1, closer.closeCalls)
}

func TestCloseWithLogFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "export.json"))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	func() {
		defer CloseWithLog(f, logger, "export file")
		_, err := f.WriteString("{}")
		require.NoError(t, err)
	}()
	assert.Empty(t, buf.String())

	CloseWithLog(f, logger, "export file")
	assert.Contains(t, buf.String(), "already closed")
}
