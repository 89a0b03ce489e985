package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncedCallbackOnWrite(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	suiteFile := filepath.Join(dir, "suite.hcl")
	require.NoError(t, os.WriteFile(suiteFile, []byte("experiment \"a\" {}\n"), 0o600))

	changed := make(chan struct{}, 8)
	w := New(dir, func(context.Context) { changed <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register its targets.
	time.Sleep(200 * time.Millisecond)

	// --- Act ---
	// A burst of writes should collapse into one callback.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(suiteFile, []byte("experiment \"b\" {}\n"), 0o600))
		time.Sleep(20 * time.Millisecond)
	}

	// --- Assert ---
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change callback after writing the watched file")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_WatchesSingleFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	suiteFile := filepath.Join(t.TempDir(), "suite.hcl")
	require.NoError(t, os.WriteFile(suiteFile, []byte("a\n"), 0o600))

	changed := make(chan struct{}, 1)
	w := New(suiteFile, func(context.Context) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(200 * time.Millisecond)

	// --- Act ---
	require.NoError(t, os.WriteFile(suiteFile, []byte("b\n"), 0o600))

	// --- Assert ---
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change callback after writing the watched file")
	}
}

func TestWatcher_MissingPath(t *testing.T) {
	t.Parallel()

	w := New(filepath.Join(t.TempDir(), "nope"), func(context.Context) {})
	err := w.Run(context.Background())
	assert.ErrorContains(t, err, "failed to stat watch path")
}
