package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// testHookCrashBeforeRename runs between writing the temporary file and
// moving it into place.
var testHookCrashBeforeRename func()

// RenameError reports a failure to move the temporary file over the target.
type RenameError struct {
	Err      error
	tempPath string
}

func (e RenameError) Error() string    { return e.Err.Error() }
func (e RenameError) TempPath() string { return e.tempPath }
func (e RenameError) Unwrap() error    { return e.Err }

// AtomicWriteFile replaces filename with data. Readers see either the old
// contents or data, never a partial write. Parent directories are created.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := writeTemp(dir, ".tmp-"+filepath.Base(filename)+"-*", data, perm)
	if err != nil {
		return err
	}
	done := false
	defer func() {
		if done {
			return
		}
		if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove temporary file", "path", tmp, "error", err)
		}
	}()

	if testHookCrashBeforeRename != nil {
		testHookCrashBeforeRename()
	}
	if err := replaceFile(tmp, filename); err != nil {
		return RenameError{Err: err, tempPath: tmp}
	}
	done = true
	return nil
}

// writeTemp writes data to a new synced file in dir, which keeps the final
// rename on one filesystem, and returns its path. Nothing is left behind on
// failure.
func writeTemp(dir, pattern string, data []byte, perm os.FileMode) (path string, err error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()
	if _, err = f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = f.Chmod(perm); err != nil {
		return "", fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return path, nil
}
