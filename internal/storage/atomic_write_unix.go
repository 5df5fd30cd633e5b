//go:build !windows

package storage

import "os"

// replaceFile moves src over dst. rename(2) is atomic within a filesystem.
func replaceFile(src, dst string) error { return os.Rename(src, dst) }
