package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// LogFile is an append-only log file that rolls over by size. When a write
// would push it past the limit, app.log becomes app.log.1, app.log.1 becomes
// app.log.2 and so on, keeping at most backups old files.
//
// Safe for concurrent use.
type LogFile struct {
	mu      sync.Mutex
	path    string
	limit   int64
	backups int
	size    int64
	file    *os.File
}

// OpenLogFile opens (creating as needed) the log file at path. maxSizeMB is
// clamped to at least 1 and backups to at least 0.
func OpenLogFile(path string, maxSizeMB, backups int) (*LogFile, error) {
	return openLogFile(path, int64(max(maxSizeMB, 1))<<20, max(backups, 0))
}

func openLogFile(path string, limit int64, backups int) (*LogFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	l := &LogFile{path: path, limit: limit, backups: backups}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LogFile) open() error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	l.file, l.size = f, info.Size()
	return nil
}

// Write appends p, rolling over first when p would not fit. A record is
// never split across files.
func (l *LogFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return 0, os.ErrClosed
	}
	if l.size > 0 && l.size+int64(len(p)) > l.limit {
		if err := l.file.Close(); err != nil {
			return 0, fmt.Errorf("failed to close log file for rollover: %w", err)
		}
		l.file = nil
		if err := l.shift(); err != nil {
			return 0, fmt.Errorf("failed to roll over log file: %w", err)
		}
		if err := l.open(); err != nil {
			return 0, err
		}
	}
	n, err := l.file.Write(p)
	l.size += int64(n)
	return n, err
}

// shift renames the backups up by one, dropping the oldest.
func (l *LogFile) shift() error {
	if l.backups == 0 {
		return os.Remove(l.path)
	}
	_ = os.Remove(l.backupPath(l.backups))
	for n := l.backups - 1; n >= 1; n-- {
		if err := os.Rename(l.backupPath(n), l.backupPath(n+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return os.Rename(l.path, l.backupPath(1))
}

func (l *LogFile) backupPath(n int) string { return l.path + "." + strconv.Itoa(n) }

// Path returns the file name.
func (l *LogFile) Path() string { return l.path }

// Close closes the file. Further writes fail with os.ErrClosed.
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

var _ io.WriteCloser = (*LogFile)(nil)
