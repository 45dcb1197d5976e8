package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherBatchesChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := New(50*time.Millisecond, func(path string) bool { return strings.HasSuffix(path, ".css") }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan []string, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) {
			got <- paths
			cancel()
		})
	}()

	a := filepath.Join(dir, "a.css")
	b := filepath.Join(dir, "b.css")
	require.NoError(t, os.WriteFile(a, []byte(".a{}"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(".b{}"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte(".a{color:red}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case paths := <-got:
		assert.Equal(t, []string{a, b}, paths)
	case <-ctx.Done():
		t.Fatal("no batch delivered")
	}
	require.NoError(t, <-done)
}

func TestWatcherIgnoresChmod(t *testing.T) {
	w, err := New(time.Millisecond, nil, nil)
	require.NoError(t, err)
	defer w.close()

	w.add(fsnotify.Event{Name: "a.css", Op: fsnotify.Chmod})
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.pending)
}

func TestWatcherAddMissingDir(t *testing.T) {
	w, err := New(time.Millisecond, nil, nil)
	require.NoError(t, err)
	defer w.close()

	assert.Error(t, w.Add(filepath.Join(t.TempDir(), "missing")))
}
