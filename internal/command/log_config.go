package command

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joeycumines/rofi-calc/internal/config"
	"github.com/joeycumines/rofi-calc/internal/storage"
)

// logFlags are the logging flags shared by the calculator commands.
type logFlags struct {
	file  string
	level string
}

func (f *logFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.file, "log-file", "", "Write JSON logs to this file (overrides log.file)")
	fs.StringVar(&f.level, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
}

// logConfig holds resolved logging configuration.
type logConfig struct {
	level   slog.Level
	logFile *storage.LogFile // nil if no file logging
}

// resolveLogConfig resolves log configuration from flags and config. Flag
// values win; empty flags fall back to the config, its environment overrides
// and finally the schema defaults. The caller must close logFile if non-nil.
func resolveLogConfig(flags logFlags, cfg *config.Config) (logConfig, error) {
	schema := config.DefaultSchema()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	var lc logConfig

	levelStr := flags.level
	if levelStr == "" {
		levelStr = schema.Resolve(cfg, config.KeyLogLevel)
	}
	level, err := parseLevel(levelStr)
	if err != nil {
		return lc, err
	}
	lc.level = level

	logPath := flags.file
	if logPath == "" {
		logPath = schema.Resolve(cfg, config.KeyLogFile)
	}
	if logPath != "" {
		w, err := storage.OpenLogFile(logPath,
			schema.ResolveInt(cfg, config.KeyLogMaxSizeMB),
			schema.ResolveInt(cfg, config.KeyLogMaxFiles))
		if err != nil {
			return lc, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		lc.logFile = w
	}
	return lc, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// newLogger builds the command logger: JSON to the log file when one is
// configured, otherwise text to fallback. A nil fallback discards output.
func (lc logConfig) newLogger(fallback io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.level}
	if lc.logFile != nil {
		return slog.New(slog.NewJSONHandler(lc.logFile, opts))
	}
	if fallback == nil {
		fallback = io.Discard
	}
	return slog.New(slog.NewTextHandler(fallback, opts))
}

func (lc logConfig) close() {
	if lc.logFile != nil {
		_ = lc.logFile.Close()
	}
}
