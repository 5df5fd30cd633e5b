package command

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/rofi-calc/internal/calc"
	"github.com/joeycumines/rofi-calc/internal/config"
	"github.com/joeycumines/rofi-calc/internal/session"
)

// calcCommand is embedded by the commands that evaluate expressions. It
// binds every calculator option as a flag, defaulting to the configured
// value.
type calcCommand struct {
	*BaseCommand
	config *config.Config
	opts   config.Options
	logs   logFlags
}

func newCalcCommand(cfg *config.Config, name, description, usage string) calcCommand {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return calcCommand{
		BaseCommand: NewBaseCommand(name, description, usage),
		config:      cfg,
		opts:        config.OptionsFromConfig(cfg, config.DefaultSchema()),
	}
}

// SetupFlags binds the calculator options and the logging flags.
func (c *calcCommand) SetupFlags(fs *flag.FlagSet) {
	c.opts = config.OptionsFromConfig(c.config, config.DefaultSchema())
	config.BindFlags(fs, &c.opts)
	c.logs.register(fs)
}

// sectionOption resolves key in this command's config section.
func (c *calcCommand) sectionOption(key string) string {
	return config.DefaultSchema().ResolveSection(c.config, c.Name(), key)
}

// openSession starts a calculator session. Logs go to the log file when one
// is configured. Otherwise they go to fallback, errors only unless
// -log-level is given, and a nil fallback discards them. The returned
// function closes the session and the log file.
func (c *calcCommand) openSession(fallback io.Writer) (*session.Session, *slog.Logger, func(), error) {
	lc, err := resolveLogConfig(c.logs, c.config)
	if err != nil {
		return nil, nil, nil, err
	}
	if lc.logFile == nil && c.logs.level == "" {
		// Missing exchange rates and similar startup warnings would
		// otherwise precede every result.
		lc.level = max(lc.level, slog.LevelError)
	}
	logger := lc.newLogger(fallback).With("command", c.Name())

	engine := calc.NewExprEngine(logger.With("component", "engine"))
	sess, err := session.New(engine, c.opts, logger)
	if err != nil {
		lc.close()
		return nil, nil, nil, fmt.Errorf("failed to start session: %w", err)
	}
	return sess, logger, func() {
		_ = sess.Close()
		lc.close()
	}, nil
}

// loadHistory loads the history file, logging a failure and carrying on
// with an empty history.
func loadHistory(sess *session.Session, logger *slog.Logger) {
	if err := sess.LoadHistory(); err != nil {
		logger.Warn("failed to load history", "error", err)
	}
}
