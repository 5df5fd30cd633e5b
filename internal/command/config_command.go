package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/joeycumines/rofi-calc/internal/config"
	"github.com/joeycumines/rofi-calc/internal/storage"
)

// ConfigCommand shows, validates and edits the configuration file.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	showAll    bool
}

// NewConfigCommand creates the config command. An empty configPath means
// the default location.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [options] [validate | schema | <key> [value]]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showAll, "all", false, "Show every configured value, including [section] values")
}

func (c *ConfigCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	switch {
	case len(args) == 0 && c.showAll:
		c.printAll(stdout)
		return nil
	case len(args) == 0:
		_, _ = fmt.Fprint(stdout, configUsage)
		return nil
	case args[0] == "validate":
		return c.validate(stdout)
	case args[0] == "schema":
		_, _ = fmt.Fprint(stdout, config.DefaultSchema().FormatHelp())
		return nil
	case len(args) == 1:
		c.get(args[0], stdout)
		return nil
	case len(args) == 2:
		return c.set(args[0], args[1], stdout)
	}
	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

const configUsage = `Configuration management:
  config <key>          - Show the effective value of a key
  config <key> <value>  - Set a key in the config file
  config -all           - Show all configured values
  config validate       - Validate configuration
  config schema         - Show configuration schema
`

func (c *ConfigCommand) get(key string, stdout io.Writer) {
	schema := config.DefaultSchema()
	if _, ok := c.config.GetGlobalOption(key); !ok && schema.Lookup("", key) == nil {
		_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
		return
	}
	_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, schema.Resolve(c.config, key))
}

func (c *ConfigCommand) set(key, value string, stdout io.Writer) error {
	path, err := configFilePath(c.configPath)
	if err != nil {
		return err
	}
	if err := config.SetKeyInFile(path, key, value); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	c.config.SetGlobalOption(key, value)
	_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
	return nil
}

func (c *ConfigCommand) printAll(stdout io.Writer) {
	printOptions := func(options map[string]string) {
		for _, key := range slices.Sorted(maps.Keys(options)) {
			_, _ = fmt.Fprintf(stdout, "  %s: %s\n", key, options[key])
		}
	}
	_, _ = fmt.Fprintln(stdout, "Global configuration:")
	printOptions(c.config.Global)
	for _, section := range slices.Sorted(maps.Keys(c.config.Commands)) {
		_, _ = fmt.Fprintf(stdout, "[%s]\n", section)
		printOptions(c.config.Commands[section])
	}
}

// validate reports schema issues plus the warnings recorded while loading.
func (c *ConfigCommand) validate(stdout io.Writer) error {
	issues := append(config.ValidateConfig(c.config, config.DefaultSchema()), c.config.GetWarnings()...)
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return fmt.Errorf("configuration has %d issue(s)", len(issues))
}

func configFilePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return path, nil
}

const defaultConfigFile = `# rofi-calc configuration file
# One "option value" per line; a bare option name switches a boolean on.
# [launch] and [repl] hold options for the interactive front ends.

# eval-timeout-ms 1000
# message-severity warning
# history-length 100
# no-auto-clear-filter
# automatic-save-to-history
# log.file /tmp/rofi-calc.log
# log.level info

[launch]
prompt calc
hint-result Add to history

[repl]
# prompt >
`

// InitCommand writes a commented default configuration file.
type InitCommand struct {
	*BaseCommand
	configPath string
	force      bool
}

// NewInitCommand creates the init command. An empty configPath means the
// default location.
func NewInitCommand(configPath string) *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand("init", "Write a default configuration file", "init [options]"),
		configPath:  configPath,
	}
}

func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "Overwrite an existing configuration file")
}

func (c *InitCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	path, err := configFilePath(c.configPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); !c.force && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintf(stdout, "Configuration already exists at: %s\nUse -force to overwrite existing configuration\n", path)
		return nil
	}
	if err := storage.AtomicWriteFile(path, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "Initialized rofi-calc configuration at: %s\n", path)
	return nil
}
