package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return string(data)
}

func TestLogFile_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rofi-calc.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := OpenLogFile(path, 1, 2)
	if err != nil {
		t.Fatalf("OpenLogFile: %v", err)
	}
	if _, err := l.Write([]byte("new\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := readFile(t, path); got != "old\nnew\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestLogFile_RollsOverAndKeepsBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.log")
	l, err := openLogFile(path, 10, 2)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	defer l.Close()

	for _, rec := range []string{"aaaaaaaa\n", "bbbbbbbb\n", "cccccccc\n", "dddddddd\n"} {
		if _, err := l.Write([]byte(rec)); err != nil {
			t.Fatalf("Write(%q): %v", rec, err)
		}
	}

	if got := readFile(t, path); got != "dddddddd\n" {
		t.Errorf("current = %q", got)
	}
	if got := readFile(t, path+".1"); got != "cccccccc\n" {
		t.Errorf("backup 1 = %q", got)
	}
	if got := readFile(t, path+".2"); got != "bbbbbbbb\n" {
		t.Errorf("backup 2 = %q", got)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("backup 3 should not exist: %v", err)
	}
}

func TestLogFile_NoBackupsTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.log")
	l, err := openLogFile(path, 4, 0)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	defer l.Close()

	_, _ = l.Write([]byte("one\n"))
	_, _ = l.Write([]byte("two\n"))
	if got := readFile(t, path); got != "two\n" {
		t.Errorf("content = %q", got)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Errorf("no backup expected: %v", err)
	}
}

func TestLogFile_OversizedRecordWrittenWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.log")
	l, err := openLogFile(path, 4, 1)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	defer l.Close()

	big := strings.Repeat("x", 16) + "\n"
	if _, err := l.Write([]byte(big)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := readFile(t, path); got != big {
		t.Errorf("content = %q", got)
	}
}

func TestLogFile_WriteAfterClose(t *testing.T) {
	l, err := OpenLogFile(filepath.Join(t.TempDir(), "calc.log"), 0, -1)
	if err != nil {
		t.Fatalf("OpenLogFile: %v", err)
	}
	if l.limit != 1<<20 || l.backups != 0 {
		t.Fatalf("clamping failed: limit=%d backups=%d", l.limit, l.backups)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := l.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("Write after Close = %v, want os.ErrClosed", err)
	}
}
