package config

import (
	"flag"
	"strings"
	"time"

	"github.com/joeycumines/rofi-calc/internal/storage"
)

// Options is the resolved, read-only view of the configuration used by the
// session and its front ends. It is passed by value.
type Options struct {
	EvalTimeoutMS          int
	NoHistory              bool
	NoPersistHistory       bool
	AutomaticSave          bool
	HistoryOnlySaveResults bool
	HistoryLength          int
	NoAutoClearFilter      bool
	NoLoadHistoryVariables bool
	DumpLocalVariables     bool
	MessageSeverity        string
	HistoryFile            string
	DefinitionsDir         string
}

// DefaultOptions returns the options implied by the schema defaults alone.
func DefaultOptions() Options {
	return OptionsFromConfig(NewConfig(), DefaultSchema())
}

// OptionsFromConfig resolves every option through the schema: environment
// variable, then config file, then default.
func OptionsFromConfig(c *Config, s *ConfigSchema) Options {
	if c == nil {
		c = NewConfig()
	}
	if s == nil {
		s = DefaultSchema()
	}
	return Options{
		EvalTimeoutMS:          s.ResolveInt(c, KeyEvalTimeoutMS),
		NoHistory:              s.ResolveBool(c, KeyNoHistory),
		NoPersistHistory:       s.ResolveBool(c, KeyNoPersistHistory),
		AutomaticSave:          s.ResolveBool(c, KeyAutomaticSave),
		HistoryOnlySaveResults: s.ResolveBool(c, KeyHistoryOnlySaveResults),
		HistoryLength:          s.ResolveInt(c, KeyHistoryLength),
		NoAutoClearFilter:      s.ResolveBool(c, KeyNoAutoClearFilter),
		NoLoadHistoryVariables: s.ResolveBool(c, KeyNoLoadHistoryVariables),
		DumpLocalVariables:     s.ResolveBool(c, KeyDumpLocalVariables),
		MessageSeverity:        strings.ToLower(s.Resolve(c, KeyMessageSeverity)),
		HistoryFile:            s.Resolve(c, KeyHistoryFile),
		DefinitionsDir:         s.Resolve(c, KeyDefinitionsDir),
	}
}

// BindFlags registers one flag per option on fs, defaulting to the current
// values of o and writing parsed values back into o.
func BindFlags(fs *flag.FlagSet, o *Options) {
	fs.IntVar(&o.EvalTimeoutMS, KeyEvalTimeoutMS, o.EvalTimeoutMS, "Evaluation timeout in milliseconds (0 disables)")
	fs.BoolVar(&o.NoHistory, KeyNoHistory, o.NoHistory, "Disable history")
	fs.BoolVar(&o.NoPersistHistory, KeyNoPersistHistory, o.NoPersistHistory, "Do not read or write the history file")
	fs.BoolVar(&o.AutomaticSave, KeyAutomaticSave, o.AutomaticSave, "Append the last result to history on exit")
	fs.BoolVar(&o.HistoryOnlySaveResults, KeyHistoryOnlySaveResults, o.HistoryOnlySaveResults, "Store results without expressions")
	fs.IntVar(&o.HistoryLength, KeyHistoryLength, o.HistoryLength, "Maximum number of history entries")
	fs.BoolVar(&o.NoAutoClearFilter, KeyNoAutoClearFilter, o.NoAutoClearFilter, "Keep the filter text after committing")
	fs.BoolVar(&o.NoLoadHistoryVariables, KeyNoLoadHistoryVariables, o.NoLoadHistoryVariables, "Skip variable assignments in loaded history")
	fs.BoolVar(&o.DumpLocalVariables, KeyDumpLocalVariables, o.DumpLocalVariables, "Log local variables after each evaluation")
	fs.StringVar(&o.MessageSeverity, KeyMessageSeverity, o.MessageSeverity, "Lowest diagnostic severity shown: information, warning, error")
	fs.StringVar(&o.HistoryFile, KeyHistoryFile, o.HistoryFile, "History file path")
	fs.StringVar(&o.DefinitionsDir, KeyDefinitionsDir, o.DefinitionsDir, "Definitions directory")
}

// EvalTimeout converts EvalTimeoutMS to a duration. Zero or negative means no limit.
func (o Options) EvalTimeout() time.Duration {
	if o.EvalTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(o.EvalTimeoutMS) * time.Millisecond
}

// HistoryPath returns the history file, falling back to the per-user default.
func (o Options) HistoryPath() (string, error) {
	if o.HistoryFile != "" {
		return o.HistoryFile, nil
	}
	return storage.HistoryFilePath()
}

// DefinitionsPath returns the definitions directory, falling back to the per-user default.
func (o Options) DefinitionsPath() (string, error) {
	if o.DefinitionsDir != "" {
		return o.DefinitionsDir, nil
	}
	return storage.DefaultDefinitionsDirectory()
}
