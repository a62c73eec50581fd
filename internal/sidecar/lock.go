package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ManifestLock serializes manifest updates across processes: a
// dedicated cross-process file lock, via github.com/gofrs/flock's
// Lock/TryLock/Unlock, ensures only one coordinator owns writes to the
// manifest at a time.
type ManifestLock struct {
	path string
	fl   *flock.Flock
}

// NewManifestLock returns a lock for the manifest under sidecarRoot.
func NewManifestLock(sidecarRoot string) *ManifestLock {
	path := filepath.Join(sidecarRoot, ".manifest.lock")
	return &ManifestLock{path: path, fl: flock.New(path)}
}

// Lock blocks until the exclusive lock is acquired or ctx is done.
func (l *ManifestLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		acquired, err := l.fl.TryLock()
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Unlock releases the lock. Safe to call when not held.
func (l *ManifestLock) Unlock() error {
	return l.fl.Unlock()
}
