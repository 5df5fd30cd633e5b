package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// HistoryFileName is the base name of the persisted history file.
const HistoryFileName = "rofi_calc_history"

// To enable testing without polluting the user's home directory,
// these functions are defined as variables. The test suite can then
// override them to point to a temporary directory.
var (
	dataDirectory        = DataDirectory
	definitionsDirectory = DefinitionsDirectory
)

// SetTestPaths overrides the path functions for testing.
// This should only be used in tests.
func SetTestPaths(dir string) {
	dataDirectory = func() (string, error) { return filepath.Join(dir, "data"), nil }
	definitionsDirectory = func() (string, error) { return filepath.Join(dir, "definitions"), nil }
}

// ResetPaths resets the path functions to their defaults.
// This should only be used in tests.
func ResetPaths() {
	dataDirectory = DataDirectory
	definitionsDirectory = DefinitionsDirectory
}

// DataDirectory returns the directory holding the history file.
// Resolves to $XDG_DATA_HOME/rofi, falling back to ~/.local/share/rofi.
func DataDirectory() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "rofi"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "rofi"), nil
}

// HistoryFilePath returns the default history file path.
func HistoryFilePath() (string, error) {
	dir, err := dataDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, HistoryFileName), nil
}

// DefinitionsDirectory returns the directory searched for local variable
// definitions and cached exchange rates: {UserConfigDir}/rofi-calc.
func DefinitionsDirectory() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "rofi-calc"), nil
}

// DefaultDefinitionsDirectory returns the definitions directory honouring test overrides.
func DefaultDefinitionsDirectory() (string, error) { return definitionsDirectory() }
