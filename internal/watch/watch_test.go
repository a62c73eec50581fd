package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDeliversDebouncedBatch(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, func(path string) bool { return strings.HasSuffix(path, ".go") }, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var batches [][]string
	done := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a"), 0644))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.Contains(t, batches[0][0], "a.go")
}

func TestWatcherFiltersByShouldWatch(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, func(path string) bool { return strings.HasSuffix(path, ".go") }, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var batches [][]string

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("ignored"), 0644))
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, batches)
}

func TestPauseSuppressesDeliveryUntilResume(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, nil, 30*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var count int

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx, func(paths []string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	w.Pause()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.go"), []byte("package c"), 0644))
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 0, count)
	mu.Unlock()

	w.Resume()
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, count)
	mu.Unlock()
}
