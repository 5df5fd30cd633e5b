package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joeycumines/rofi-calc/internal/storage"
)

// SetKeyInFile sets a global option in the configuration file at path,
// creating the file if needed. An existing global line for key is rewritten
// in place; otherwise the line goes before the first [section]. Comments,
// ordering and section options are left alone.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config file: %w", err)
	}

	line := strings.TrimSpace(key + " " + value)
	lines := splitLines(string(data))
	at, found := globalKeyLine(lines, key)
	if found {
		lines[at] = line
	} else {
		lines = slices.Insert(lines, at, line)
	}
	return storage.AtomicWriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
}

// splitLines splits s into lines, without a final empty line for the
// trailing newline.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// globalKeyLine returns the index of key's line in the global part of the
// file. When key is absent, it returns where a new global line belongs: the
// first section header, or the end.
func globalKeyLine(lines []string, key string) (int, bool) {
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if _, ok := sectionName(line); ok {
			return i, false
		}
		if line == "" || line[0] == '#' {
			continue
		}
		if k, _, _ := strings.Cut(line, " "); k == key {
			return i, true
		}
	}
	return len(lines), false
}
