package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the configuration file location.
const EnvConfigPath = "ROFI_CALC_CONFIG"

// GetConfigPath returns $ROFI_CALC_CONFIG, or rofi-calc/config under the
// user configuration directory.
func GetConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "rofi-calc", "config"), nil
}
