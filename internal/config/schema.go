package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
)

// OptionType is the kind of value an option takes.
type OptionType string

const (
	TypeString OptionType = "string"
	// TypeBool accepts true/false, yes/no, on/off, 1/0 or a bare key.
	TypeBool OptionType = "bool"
	TypeInt  OptionType = "int"
	// TypeSeverity is one of information, warning or error.
	TypeSeverity OptionType = "severity"
)

// ConfigOption declares one option. Section is empty for global options.
// EnvVar, when set, names an environment variable that takes precedence
// over the file.
type ConfigOption struct {
	Key         string
	Type        OptionType
	Default     string
	Description string
	Section     string
	EnvVar      string
}

type optionKey struct{ section, key string }

// ConfigSchema is the set of known options, kept in registration order.
type ConfigSchema struct {
	order   []optionKey
	options map[optionKey]ConfigOption
}

func NewSchema() *ConfigSchema {
	return &ConfigSchema{options: map[optionKey]ConfigOption{}}
}

// Register adds opt, replacing an earlier option with the same section and
// key.
func (s *ConfigSchema) Register(opt ConfigOption) {
	k := optionKey{opt.Section, opt.Key}
	if _, ok := s.options[k]; !ok {
		s.order = append(s.order, k)
	}
	s.options[k] = opt
}

func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns a copy of the option declared for key in section ("" for
// global), or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	opt, ok := s.options[optionKey{section, key}]
	if !ok {
		return nil
	}
	return &opt
}

// IsKnown reports whether key may appear in section. Global options may
// appear in any section.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	return s.Lookup(section, key) != nil || s.Lookup("", key) != nil
}

func (s *ConfigSchema) GlobalOptions() []ConfigOption { return s.SectionOptions("") }

// SectionOptions returns the options declared for section, in registration
// order.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, k := range s.order {
		if k.section == section {
			out = append(out, s.options[k])
		}
	}
	return out
}

// Sections returns the sorted names of the sections that declare options.
func (s *ConfigSchema) Sections() []string {
	var out []string
	for _, k := range s.order {
		if k.section != "" && !slices.Contains(out, k.section) {
			out = append(out, k.section)
		}
	}
	slices.Sort(out)
	return out
}

// Resolve returns the value of a global option: its environment variable,
// then the file, then the default. Unknown keys without a file value yield "".
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		if v, ok := c.GetGlobalOption(key); ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveSection returns the value of key in a [section]: the section's own
// value, then the global value, then the section default.
func (s *ConfigSchema) ResolveSection(c *Config, section, key string) string {
	if c != nil {
		if v, ok := c.GetCommandOption(section, key); ok {
			return v
		}
	}
	if opt := s.Lookup(section, key); opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveBool resolves key and parses it as a boolean. An unset key without
// a default, and an unparseable value, are false.
func (s *ConfigSchema) ResolveBool(c *Config, key string) bool {
	v := s.Resolve(c, key)
	if v == "" && (c == nil || !hasGlobal(c, key)) {
		// Only a bare key in the file means true.
		return false
	}
	b, err := parseBool(v)
	return err == nil && b
}

func hasGlobal(c *Config, key string) bool {
	_, ok := c.GetGlobalOption(key)
	return ok
}

// ResolveInt resolves key and parses it as an integer, falling back to the
// default and then 0.
func (s *ConfigSchema) ResolveInt(c *Config, key string) int {
	if i, err := strconv.Atoi(s.Resolve(c, key)); err == nil {
		return i
	}
	if opt := s.Lookup("", key); opt != nil {
		if i, err := strconv.Atoi(opt.Default); err == nil {
			return i
		}
	}
	return 0
}

// ValidateConfig returns the sorted problems found in c: unknown keys and
// values of the wrong type.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
		} else if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}
	for section, options := range c.Commands {
		for key, value := range options {
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
			} else if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}
	slices.Sort(issues)
	return issues
}

func validateType(t OptionType, value string) error {
	var ok bool
	switch t {
	case TypeString, "":
		ok = true
	case TypeBool:
		_, err := parseBool(value)
		ok = err == nil
	case TypeInt:
		_, err := strconv.Atoi(value)
		ok = err == nil
	case TypeSeverity:
		switch strings.ToLower(value) {
		case "information", "info", "warning", "warn", "error":
			ok = true
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	if !ok {
		return fmt.Errorf("expected %s, got %q", t, value)
	}
	return nil
}

// FormatHelp describes every option, global options first and then one
// block per section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	block := func(title string, opts []ConfigOption) {
		if len(opts) == 0 {
			return
		}
		_, _ = fmt.Fprintln(w, title)
		for _, o := range opts {
			_, _ = fmt.Fprintf(w, "  %s\t%s%s\n", o.Key, o.Description, optionDetails(o))
		}
	}
	block("Global Options:", s.GlobalOptions())
	for _, section := range s.Sections() {
		_, _ = fmt.Fprintln(w)
		block("["+section+"] Options:", s.SectionOptions(section))
	}
	_ = w.Flush()
	return b.String()
}

func optionDetails(o ConfigOption) string {
	var parts []string
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, "type: "+string(o.Type))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// Option keys shared by the config file, environment and command-line flags.
const (
	KeyEvalTimeoutMS          = "eval-timeout-ms"
	KeyNoHistory              = "no-history"
	KeyNoPersistHistory       = "no-persist-history"
	KeyAutomaticSave          = "automatic-save-to-history"
	KeyHistoryOnlySaveResults = "history-only-save-results"
	KeyHistoryLength          = "history-length"
	KeyNoAutoClearFilter      = "no-auto-clear-filter"
	KeyNoLoadHistoryVariables = "no-load-history-variables"
	KeyDumpLocalVariables     = "dump-local-variables"
	KeyMessageSeverity        = "message-severity"
	KeyHistoryFile            = "history-file"
	KeyDefinitionsDir         = "definitions-dir"
	KeyLogFile                = "log.file"
	KeyLogLevel               = "log.level"
	KeyLogMaxSizeMB           = "log.max-size-mb"
	KeyLogMaxFiles            = "log.max-files"
)

// DefaultSchema declares every rofi-calc option.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll(defaultGlobalOptions())
	s.RegisterAll(defaultCommandOptions())
	return s
}

func defaultGlobalOptions() []ConfigOption {
	return []ConfigOption{
		// Evaluation
		{Key: KeyEvalTimeoutMS, Type: TypeInt, Default: "1000", Description: "Evaluation timeout in milliseconds, split between calculation and printing", EnvVar: "ROFI_CALC_EVAL_TIMEOUT_MS"},
		{Key: KeyMessageSeverity, Type: TypeSeverity, Default: "warning", Description: "Lowest diagnostic severity shown: information, warning, error"},
		{Key: KeyDefinitionsDir, Type: TypeString, Default: "", Description: "Directory holding local definitions and exchange rates", EnvVar: "ROFI_CALC_DEFINITIONS_DIR"},
		{Key: KeyDumpLocalVariables, Type: TypeBool, Default: "false", Description: "Log the local variable table after each evaluation"},

		// History
		{Key: KeyNoHistory, Type: TypeBool, Default: "false", Description: "Disable history entirely"},
		{Key: KeyNoPersistHistory, Type: TypeBool, Default: "false", Description: "Keep history in memory only"},
		{Key: KeyAutomaticSave, Type: TypeBool, Default: "false", Description: "Append the last result to history on exit"},
		{Key: KeyHistoryOnlySaveResults, Type: TypeBool, Default: "false", Description: "Store results without their expressions"},
		{Key: KeyHistoryLength, Type: TypeInt, Default: "100", Description: "Maximum number of history entries"},
		{Key: KeyNoAutoClearFilter, Type: TypeBool, Default: "false", Description: "Keep the filter text after committing"},
		{Key: KeyNoLoadHistoryVariables, Type: TypeBool, Default: "false", Description: "Do not register assignments found in loaded history"},
		{Key: KeyHistoryFile, Type: TypeString, Default: "", Description: "History file path override", EnvVar: "ROFI_CALC_HISTORY_FILE"},

		// Logging
		{Key: KeyLogFile, Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "ROFI_CALC_LOG_FILE"},
		{Key: KeyLogLevel, Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "ROFI_CALC_LOG_LEVEL"},
		{Key: KeyLogMaxSizeMB, Type: TypeInt, Default: "10", Description: "Log file size in megabytes before it rolls over"},
		{Key: KeyLogMaxFiles, Type: TypeInt, Default: "5", Description: "Rolled-over log files to keep"},
	}
}

func defaultCommandOptions() []ConfigOption {
	return []ConfigOption{
		// [launch]
		{Key: "prompt", Section: "launch", Type: TypeString, Default: "calc", Description: "Prompt shown before the filter box"},
		{Key: "hint-result", Section: "launch", Type: TypeString, Default: "Add to history", Description: "Label of the commit menu row"},

		// [repl]
		{Key: "prompt", Section: "repl", Type: TypeString, Default: "= ", Description: "Line prompt"},
	}
}
