package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrWouldBlock is returned when another process holds a lock.
var ErrWouldBlock = errors.New("file lock would block")

// LockPath returns the lock file guarding path, e.g. the history file.
func LockPath(path string) string { return path + ".lock" }

// acquireFileLock creates the lock file at path and locks it without
// blocking. Replaced in tests.
var acquireFileLock = func(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := tryLock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrWouldBlock) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return f, nil
}

// AcquireLockHandle locks the lock file at path. ok is false, with a nil
// error, when another process holds it.
func AcquireLockHandle(path string) (f *os.File, ok bool, err error) {
	f, err = acquireFileLock(path)
	switch {
	case errors.Is(err, ErrWouldBlock):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return f, true, nil
}

// ReleaseLockHandle unlocks f and removes the lock file. A nil f is a no-op.
func ReleaseLockHandle(f *os.File) error {
	if f == nil {
		return nil
	}
	path := f.Name()
	errUnlock := unlock(f)
	errClose := f.Close()
	errRemove := os.Remove(path)
	if errors.Is(errRemove, os.ErrNotExist) {
		errRemove = nil
	}
	return errors.Join(errUnlock, errClose, errRemove)
}

// WithFileLock runs fn while holding the lock for path. Acquisition is tried
// up to attempts times, delay apart, before giving up with ErrWouldBlock.
func WithFileLock(path string, attempts int, delay time.Duration, fn func() error) error {
	lockPath := LockPath(path)
	for i := range max(attempts, 1) {
		if i > 0 {
			time.Sleep(delay)
		}
		f, ok, err := AcquireLockHandle(lockPath)
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", path, err)
		}
		if !ok {
			continue
		}
		fnErr := fn()
		if err := ReleaseLockHandle(f); err != nil {
			return errors.Join(fnErr, fmt.Errorf("failed to release lock for %s: %w", path, err))
		}
		return fnErr
	}
	return fmt.Errorf("failed to lock %s: %w", path, ErrWouldBlock)
}
