package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherImportsNewFiles(t *testing.T) {
	dir := t.TempDir()
	im, g := newTestImporter(t)

	imported := make(chan string, 4)
	w := &Watcher{
		Importer: im,
		Dir:      dir,
		Pattern:  "*.json",
		Settle:   50 * time.Millisecond,
		OnResult: func(path string, res Result, err error) {
			if err == nil && res.Success {
				imported <- filepath.Base(path)
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	writeDoc(t, dir, "new.json", "h-watch")

	select {
	case name := <-imported:
		assert.Equal(t, "new.json", name)
	case <-time.After(5 * time.Second):
		t.Fatal("file was not imported")
	}
	assert.Contains(t, g.Binaries, "h-watch")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherBadDirectory(t *testing.T) {
	im, _ := newTestImporter(t)
	w := &Watcher{Importer: im, Dir: filepath.Join(t.TempDir(), "missing")}
	assert.Error(t, w.Run(context.Background()))
}

func TestSettlerStopsDeliveringWhenDone(t *testing.T) {
	done := make(chan struct{})
	st := newSettler(time.Millisecond, 0, done)
	close(done)

	fired := make(chan struct{})
	go func() {
		st.fire("late.json")
		close(fired)
	}()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("fire blocked after done was closed")
	}
}

func TestSettlerCoalescesWrites(t *testing.T) {
	st := newSettler(30*time.Millisecond, 4, make(chan struct{}))
	defer st.stop()
	st.schedule("a.json")
	st.schedule("a.json")

	select {
	case p := <-st.ready:
		assert.Equal(t, "a.json", p)
	case <-time.After(time.Second):
		t.Fatal("path not delivered")
	}
	select {
	case p := <-st.ready:
		t.Fatalf("unexpected second delivery of %s", p)
	case <-time.After(80 * time.Millisecond):
	}
}

type cancellingImporter struct {
	cancel context.CancelFunc
	seen   chan error
}

func (c *cancellingImporter) ImportFile(ctx context.Context, path string) (Result, error) {
	c.cancel()
	c.seen <- ctx.Err()
	return Result{Source: path, Success: true}, nil
}

func TestWatcherImportOutlivesCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	imp := &cancellingImporter{cancel: cancel, seen: make(chan error, 4)}
	w := &Watcher{Importer: imp, Dir: dir, Settle: 20 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)
	writeDoc(t, dir, "x.json", "h-x")

	select {
	case err := <-imp.seen:
		assert.NoError(t, err, "the file in progress must not see the cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("file was not imported")
	}
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
