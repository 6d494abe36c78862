package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReportsBurstOnce(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 100*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	calls := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) error {
			calls <- changed
			return nil
		})
	}()

	// Give the goroutine a moment to enter the loop; events queue either way.
	for _, name := range []string{"view_1.png", "view_0.png", ".hidden", "scratch.tmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	select {
	case changed := <-calls:
		assert.Equal(t, []string{
			filepath.Join(dir, "view_0.png"),
			filepath.Join(dir, "view_1.png"),
		}, changed)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestRunStopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	boom := errors.New("boom")
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func([]string) error { return boom })
	}()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0644))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-ctx.Done():
		t.Fatal("Run did not return")
	}
}

func TestNewMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), 0)
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "/v/a.png", Op: fsnotify.Write}))
	assert.True(t, relevant(fsnotify.Event{Name: "/v/a.png", Op: fsnotify.Remove}))
	assert.False(t, relevant(fsnotify.Event{Name: "/v/a.png", Op: fsnotify.Chmod}))
	assert.False(t, relevant(fsnotify.Event{Name: "/v/.a.png", Op: fsnotify.Create}))
	assert.False(t, relevant(fsnotify.Event{Name: "/v/a.png~", Op: fsnotify.Write}))
}
