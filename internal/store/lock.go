package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockFileName sits next to the persisted artifacts.
const lockFileName = ".docsearch.lock"

// DirLock is a cross-process lock on a data directory, held while the
// three artifacts are written or read so another docsearch process never
// observes a half-written set.
type DirLock struct {
	path  string
	flock *flock.Flock
}

// NewDirLock creates a lock for dir. The lock file is <dir>/.docsearch.lock.
func NewDirLock(dir string) *DirLock {
	path := filepath.Join(dir, lockFileName)
	return &DirLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Lock blocks until the exclusive lock is held or ctx is done.
func (l *DirLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	locked, err := l.flock.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s", l.path)
	}
	return nil
}

// RLock blocks until a shared lock is held or ctx is done.
func (l *DirLock) RLock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	locked, err := l.flock.TryRLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire shared lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire shared lock on %s", l.path)
	}
	return nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *DirLock) Unlock() error {
	if !l.flock.Locked() && !l.flock.RLocked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}
