// Package fileutil holds the small filesystem helpers shared by the nest
// writers: temp-and-rename replacement and advisory output locks.
package fileutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockRetryDelay is the polling interval used while waiting for an output lock.
const LockRetryDelay = 100 * time.Millisecond

// ErrLocked reports that the lock could not be acquired before ctx ended.
var ErrLocked = errors.New("output is locked by another run")

// LockPath returns the advisory lock file guarding path.
func LockPath(path string) string {
	return path + ".lock"
}

// WithLock runs fn while holding an exclusive flock on LockPath(path).
func WithLock(ctx context.Context, path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(LockPath(path))
	ok, err := lock.TryLockContext(ctx, LockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrLocked, path, ctxErr)
		}
		return fmt.Errorf("acquire lock %s: %w", LockPath(path), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, path)
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}

// ReplaceFile lets write produce a sibling temp file and renames it over dst
// once write succeeds. The temp file is removed on any failure.
func ReplaceFile(dst string, write func(tmpPath string) error) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	// Writers such as sqlite expect to create the file themselves.
	if err := os.Remove(tmpPath); err != nil {
		return fmt.Errorf("reset temp file: %w", err)
	}

	if err := write(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", dst, err)
	}
	return nil
}

// WriteFileAtomic writes data to path through ReplaceFile.
func WriteFileAtomic(path string, data []byte) error {
	return ReplaceFile(path, func(tmpPath string) error {
		return os.WriteFile(tmpPath, data, 0o644)
	})
}
