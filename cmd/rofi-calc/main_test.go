package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/rofi-calc/internal/command"
	"github.com/joeycumines/rofi-calc/internal/config"
	"golang.org/x/term"
)

// isolate points the config, history and definitions at a temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config"))
	t.Setenv("ROFI_CALC_HISTORY_FILE", filepath.Join(dir, "history"))
	t.Setenv("ROFI_CALC_DEFINITIONS_DIR", filepath.Join(dir, "definitions"))
	t.Setenv("ROFI_CALC_LOG_FILE", "")
	return dir
}

func runArgs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun(t *testing.T) {
	isolate(t)

	t.Run("help command", func(t *testing.T) {
		stdout, _, err := runArgs(t, "help")
		if err != nil {
			t.Fatalf("help: %v", err)
		}
		for _, name := range []string{"launch", "repl", "eval", "history", "config", "log"} {
			if !strings.Contains(stdout, name) {
				t.Errorf("help output missing %q", name)
			}
		}
	})

	t.Run("help flags", func(t *testing.T) {
		for _, arg := range []string{"-h", "--help"} {
			stdout, _, err := runArgs(t, arg)
			if err != nil || !strings.Contains(stdout, "Commands:") {
				t.Errorf("%s: %v / %q", arg, err, stdout)
			}
		}
	})

	t.Run("version command", func(t *testing.T) {
		stdout, _, err := runArgs(t, "version")
		if err != nil || stdout != "rofi-calc version "+version+"\n" {
			t.Fatalf("version: %v / %q", err, stdout)
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		_, stderr, err := runArgs(t, "nonexistent")
		if err == nil || !strings.Contains(stderr, "Unknown command: nonexistent") {
			t.Fatalf("expected unknown command error, got %v / %q", err, stderr)
		}
	})

	t.Run("bad flag", func(t *testing.T) {
		_, stderr, err := runArgs(t, "eval", "-bogus", "1")
		if err == nil || !strings.Contains(stderr, "Usage: rofi-calc eval") {
			t.Fatalf("expected flag error with usage, got %v / %q", err, stderr)
		}
	})

	t.Run("command help flag", func(t *testing.T) {
		_, _, err := runArgs(t, "history", "-h")
		if !errors.Is(err, flag.ErrHelp) {
			t.Fatalf("expected flag.ErrHelp, got %v", err)
		}
	})
}

func TestRun_EvalAndHistory(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := runArgs(t, "eval", "-persist", "2^10")
	if err != nil || stdout != "1024\n" {
		t.Fatalf("eval: %v / %q", err, stdout)
	}
	stdout, _, err = runArgs(t, "=", "3", "*", "3")
	if err != nil || stdout != "9\n" {
		t.Fatalf("eval alias: %v / %q", err, stdout)
	}

	stdout, _, err = runArgs(t, "history")
	if err != nil || stdout != "0\t2^10 = 1024\n" {
		t.Fatalf("history: %v / %q", err, stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "history")); err != nil {
		t.Fatalf("history file not written: %v", err)
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config"), []byte("message-severity error\nhistory-length 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	stdout, _, err := runArgs(t, "config", config.KeyHistoryLength)
	if err != nil || stdout != "history-length: 3\n" {
		t.Fatalf("config get: %v / %q", err, stdout)
	}
	stdout, _, err = runArgs(t, "config", "validate")
	if err != nil || stdout != "Configuration is valid.\n" {
		t.Fatalf("config validate: %v / %q", err, stdout)
	}
}

func TestRun_DefaultIsLaunch(t *testing.T) {
	isolate(t)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		t.Skip("stdin is a terminal")
	}
	for _, args := range [][]string{nil, {"-no-history"}} {
		_, _, err := runArgs(t, args...)
		if !errors.Is(err, command.ErrNotTerminal) {
			t.Fatalf("run(%v) = %v, want ErrNotTerminal", args, err)
		}
	}
}
