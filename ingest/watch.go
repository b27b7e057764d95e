package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileImporter imports one file. *Importer implements it.
type FileImporter interface {
	ImportFile(ctx context.Context, path string) (Result, error)
}

// DefaultSettle is how long a file must stay unmodified before it is
// imported.
const DefaultSettle = 500 * time.Millisecond

// Watcher imports files as they are created or rewritten in a directory.
type Watcher struct {
	Importer FileImporter
	Dir      string
	Pattern  string

	// Settle delays each import until writes to the file have stopped.
	Settle time.Duration

	// OnResult, when set, is called after every import attempt.
	OnResult func(path string, res Result, err error)

	Logger *slog.Logger
}

// Run watches until ctx is done or the watcher closes. Imports run one at
// a time on the calling goroutine; a cancel does not interrupt the file in
// progress.
func (w *Watcher) Run(ctx context.Context) error {
	pattern := w.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := MatchPattern(pattern, ""); err != nil {
		return err
	}
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	logger.Info("watching directory", "dir", w.Dir, "pattern", pattern)

	// settle timers deliver until Run returns
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	st := newSettler(settle, 16, runCtx.Done())
	defer st.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if match, _ := MatchPattern(pattern, filepath.Base(ev.Name)); match {
				st.schedule(ev.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case path := <-st.ready:
			res, err := w.Importer.ImportFile(context.WithoutCancel(ctx), path)
			if err != nil {
				logger.Error("watched import failed", "path", path, "error", err)
			}
			if w.OnResult != nil {
				w.OnResult(path, res, err)
			}
		}
	}
}

// settler delays each path until it has gone quiet for delay, then
// delivers it on ready. Deliveries stop once done is closed.
type settler struct {
	delay time.Duration
	ready chan string
	done  <-chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newSettler(delay time.Duration, buffer int, done <-chan struct{}) *settler {
	return &settler{
		delay:  delay,
		ready:  make(chan string, buffer),
		done:   done,
		timers: make(map[string]*time.Timer),
	}
}

// schedule (re)starts the quiet period of path.
func (s *settler) schedule(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[path]; ok {
		t.Reset(s.delay)
		return
	}
	s.timers[path] = time.AfterFunc(s.delay, func() { s.fire(path) })
}

func (s *settler) fire(path string) {
	s.mu.Lock()
	delete(s.timers, path)
	s.mu.Unlock()
	select {
	case s.ready <- path:
	case <-s.done:
	}
}

func (s *settler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
}
