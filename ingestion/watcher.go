package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
const DefaultDebounce = 250 * time.Millisecond

// Watcher ingests text files as they are created or written in a directory.
// A file written again after it was ingested is ingested again as a new
// document.
type Watcher struct {
	pipeline *Pipeline
	dir      string
	watcher  *fsnotify.Watcher

	maxSize  int64
	allowed  []string
	debounce time.Duration
	onResult func(path string, result *Result, err error)
	logger   *slog.Logger

	timersMu sync.Mutex
	timers   map[string]*time.Timer
	inflight sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets how long a file must stay quiet before it is ingested.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFileLimits sets the size and extension limits passed to ReadFile.
func WithFileLimits(maxSize int64, allowed []string) WatchOption {
	return func(w *Watcher) {
		w.maxSize = maxSize
		if len(allowed) > 0 {
			w.allowed = allowed
		}
	}
}

// WithResultHandler sets a callback invoked after every ingestion attempt.
// It may be called from several goroutines at once.
func WithResultHandler(fn func(path string, result *Result, err error)) WatchOption {
	return func(w *Watcher) {
		w.onResult = fn
	}
}

// WithWatchLogger sets a custom logger.
// Default is slog.Default().
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher starts watching dir. Events are only handled once Run is called.
func NewWatcher(p *Pipeline, dir string, opts ...WatchOption) (*Watcher, error) {
	if p == nil {
		return nil, fmt.Errorf("watcher: pipeline is nil")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	w := &Watcher{
		pipeline: p,
		dir:      dir,
		maxSize:  DefaultMaxFileSize,
		allowed:  DefaultAllowedExtensions,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher", "dir", dir)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to add path to watcher: %w", err)
	}
	w.watcher = fsw
	return w, nil
}

// Run handles file events until ctx is done, then waits for ingestions in
// progress and closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	w.logger.Info("watching for documents")

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.inflight.Wait()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.inflight.Wait()
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.inflight.Wait()
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// Close stops watching. Run calls it on return.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.watcher.Close()
	})
	return w.closeErr
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	if !extensionAllowed(strings.ToLower(filepath.Ext(event.Name)), w.allowed) {
		return
	}

	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	w.schedule(ctx, event.Name)
}

// schedule (re)starts the debounce timer for path. The caller holds timersMu.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if timer, exists := w.timers[path]; exists {
		if timer.Stop() {
			w.inflight.Done()
		}
	}
	w.inflight.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()

		// A later event may already have replaced this timer.
		w.timersMu.Lock()
		if w.timers[path] == timer {
			delete(w.timers, path)
		}
		w.timersMu.Unlock()

		w.ingest(ctx, path)
	})
	w.timers[path] = timer
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	var result *Result
	in, err := ReadFile(path, w.maxSize, w.allowed)
	if err == nil {
		result, err = w.pipeline.Ingest(ctx, *in)
	}
	if err != nil {
		w.logger.Error("error ingesting file", "path", path, "err", err)
	} else {
		w.logger.Info("file ingested", "path", path, "document", result.Document.Id)
	}

	if w.onResult != nil {
		w.onResult(path, result, err)
	}
}

func (w *Watcher) stopTimers() {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	for path, timer := range w.timers {
		if timer.Stop() {
			w.inflight.Done()
		}
		delete(w.timers, path)
	}
}
