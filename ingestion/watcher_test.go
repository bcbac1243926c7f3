package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type watchResult struct {
	path   string
	result *Result
	err    error
}

func startWatcher(t *testing.T, p *Pipeline, dir string) (<-chan watchResult, context.CancelFunc, <-chan error) {
	t.Helper()
	results := make(chan watchResult, 10)
	w, err := NewWatcher(p, dir,
		WithDebounce(20*time.Millisecond),
		WithResultHandler(func(path string, result *Result, err error) {
			results <- watchResult{path: path, result: result, err: err}
		}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return results, cancel, done
}

func waitResult(t *testing.T, ch <-chan watchResult) watchResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for ingestion")
		return watchResult{}
	}
}

func TestNewWatcher_Errors(t *testing.T) {
	p, _, _ := setupTestPipeline(t)

	_, err := NewWatcher(nil, t.TempDir())
	assert.Error(t, err)

	_, err = NewWatcher(p, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewWatcher(p, file)
	assert.Error(t, err)
}

func TestWatcher_IngestsNewFiles(t *testing.T) {
	p, docRepo, _ := setupTestPipeline(t)
	dir := t.TempDir()
	results, cancel, done := startWatcher(t, p, dir)

	// Ignored: wrong extension and hidden file
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("markdown notes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".draft.txt"), []byte("hidden draft"), 0644))

	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("Quarterly revenue grew across every region."), 0644))

	r := waitResult(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, path, r.path)
	assert.Equal(t, "report.txt", r.result.Document.Filename)
	assert.True(t, r.result.Document.Processed)

	page, err := docRepo.ListDocuments(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_ReportsUnreadableFiles(t *testing.T) {
	p, _, _ := setupTestPipeline(t)
	dir := t.TempDir()
	results, _, _ := startWatcher(t, p, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   \n"), 0644))

	r := waitResult(t, results)
	assert.ErrorIs(t, r.err, ErrEmptyFile)
	assert.Nil(t, r.result)
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	p, docRepo, _ := setupTestPipeline(t)
	dir := t.TempDir()

	var mu sync.Mutex
	count := 0
	w, err := NewWatcher(p, dir,
		WithDebounce(200*time.Millisecond),
		WithResultHandler(func(string, *Result, error) {
			mu.Lock()
			count++
			mu.Unlock()
		}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, "burst.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	for range 5 {
		_, err := f.WriteString("Streaming text arrives in pieces. ")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, 5*time.Second, 20*time.Millisecond)

	page, err := docRepo.ListDocuments(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_RescheduleAfterTimerFired(t *testing.T) {
	p, _, _ := setupTestPipeline(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "late.txt")
	require.NoError(t, os.WriteFile(path, []byte("Late edits arrive after the first timer fired."), 0644))

	results := make(chan watchResult, 2)
	w, err := NewWatcher(p, dir,
		WithDebounce(10*time.Millisecond),
		WithResultHandler(func(path string, result *Result, err error) {
			results <- watchResult{path: path, result: result, err: err}
		}))
	require.NoError(t, err)
	defer w.Close()
	ctx := context.Background()

	// The first timer fires while the lock is held, so its callback waits
	// on the lock until a second event has replaced it.
	w.timersMu.Lock()
	w.schedule(ctx, path)
	time.Sleep(50 * time.Millisecond)
	w.debounce = time.Hour
	w.schedule(ctx, path)
	replacement := w.timers[path]
	w.timersMu.Unlock()

	r := waitResult(t, results)
	require.NoError(t, r.err)

	w.timersMu.Lock()
	assert.Same(t, replacement, w.timers[path], "the fired callback must not drop its replacement")
	w.timersMu.Unlock()

	w.stopTimers()
	drained := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("pending timer was not stopped")
	}
	assert.Empty(t, results)
}
