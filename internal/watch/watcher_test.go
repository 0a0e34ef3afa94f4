package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func startWatcher(t *testing.T, paths []string) (*Watcher, chan []string) {
	t.Helper()
	changes := make(chan []string, 16)
	w, err := New(paths, 50*time.Millisecond, func(_ context.Context, p []string) {
		changes <- p
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w, changes
}

func TestWatcher_ReportsChangedFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "one")
	writeFile(t, b, "two")

	w, changes := startWatcher(t, []string{a, b})
	assert.True(t, w.IsWatching())

	writeFile(t, b, "three")

	select {
	case got := <-changes:
		assert.Equal(t, []string{b}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	stats := w.GetStats()
	assert.GreaterOrEqual(t, stats.Events, 1)
	assert.Equal(t, b, stats.LastEventPath)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	writeFile(t, a, "0")

	w, changes := startWatcher(t, []string{a})
	for i := 0; i < 5; i++ {
		writeFile(t, a, string(rune('1'+i)))
	}

	select {
	case got := <-changes:
		assert.Equal(t, []string{a}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case got := <-changes:
		t.Fatalf("unexpected second trigger: %v", got)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, 1, w.GetStats().Triggers)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	writeFile(t, a, "one")

	_, changes := startWatcher(t, []string{a})
	writeFile(t, filepath.Join(dir, "other.txt"), "noise")

	select {
	case got := <-changes:
		t.Fatalf("unexpected trigger: %v", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	writeFile(t, a, "one")

	w, err := New([]string{a}, 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not exit")
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_Errors(t *testing.T) {
	_, err := New(nil, 0, nil)
	assert.Error(t, err)

	w, err := New([]string{filepath.Join(t.TempDir(), "missing", "x.txt")}, 0, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	assert.False(t, w.IsWatching())
	w.Stop()
}
