// Package config loads the rofi-calc configuration file and resolves the
// calculator options from it.
//
// The file holds one "key value" pair per line. A key on its own is a
// boolean switch. Lines starting with # are comments, and a [name] line
// starts the options of one command:
//
//	eval-timeout-ms 500
//	no-persist-history
//
//	[launch]
//	prompt qalc
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config is a parsed configuration file.
type Config struct {
	// Global holds the options before the first section.
	Global map[string]string
	// Commands holds the options of each [section], by section name.
	Commands map[string]map[string]string
	// Warnings lists unknown keys and malformed values found while loading.
	Warnings []string
}

// NewConfig returns an empty configuration.
func NewConfig() *Config {
	return &Config{
		Global:   map[string]string{},
		Commands: map[string]map[string]string{},
	}
}

// Load reads the configuration file at GetConfigPath.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration file at path. A missing file yields
// an empty configuration; a symlink is refused.
func LoadFromPath(path string) (*Config, error) {
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	case info.Mode()&os.ModeSymlink != 0:
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses a configuration from r and validates it against
// DefaultSchema, recording any issues as warnings.
func LoadFromReader(r io.Reader) (*Config, error) {
	c := NewConfig()
	options := c.Global
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if name, ok := sectionName(line); ok {
			options = c.Global
			if name != "" {
				options = c.section(name)
			}
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		options[key] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	for _, issue := range ValidateConfig(c, DefaultSchema()) {
		c.Warnings = append(c.Warnings, issue)
		slog.Warn("config: " + issue)
	}
	return c, nil
}

// sectionName reports whether line is a [section] header, and its name.
func sectionName(line string) (string, bool) {
	if len(line) < 2 || line[0] != '[' || line[len(line)-1] != ']' {
		return "", false
	}
	return strings.TrimSpace(line[1 : len(line)-1]), true
}

func (c *Config) section(name string) map[string]string {
	options, ok := c.Commands[name]
	if !ok {
		options = map[string]string{}
		c.Commands[name] = options
	}
	return options
}

// parseBool accepts true/false, 1/0, yes/no and on/off in any case. An empty
// value is true, so a bare key switches an option on.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", s)
}

func (c *Config) GetGlobalOption(name string) (string, bool) {
	v, ok := c.Global[name]
	return v, ok
}

// GetCommandOption returns the option from the command's section, falling
// back to the global value.
func (c *Config) GetCommandOption(command, name string) (string, bool) {
	if v, ok := c.Commands[command][name]; ok {
		return v, true
	}
	return c.GetGlobalOption(name)
}

func (c *Config) SetGlobalOption(name, value string) { c.Global[name] = value }

func (c *Config) SetCommandOption(command, name, value string) {
	c.section(command)[name] = value
}

func (c *Config) GetWarnings() []string { return c.Warnings }

func (c *Config) HasWarnings() bool { return len(c.Warnings) > 0 }
