package command

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/rofi-calc/internal/config"
)

// calcArgs points a calculator command at a private history file and
// definitions directory.
func calcArgs(t *testing.T) (historyFile string, args []string) {
	t.Helper()
	dir := t.TempDir()
	historyFile = filepath.Join(dir, "data", "rofi_calc_history")
	return historyFile, []string{
		"-" + config.KeyHistoryFile, historyFile,
		"-" + config.KeyDefinitionsDir, filepath.Join(dir, "definitions"),
	}
}

func writeHistory(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestEvalCommand_PrintsResult(t *testing.T) {
	t.Parallel()
	_, args := calcArgs(t)
	stdout, stderr, err := parseAndRun(t, NewEvalCommand(config.NewConfig()), append(args, "6", "*", "7")...)
	if err != nil {
		t.Fatalf("eval returned error: %v (stderr %q)", err, stderr)
	}
	if stdout != "42\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestEvalCommand_ErrorDiagnostic(t *testing.T) {
	t.Parallel()
	_, args := calcArgs(t)
	stdout, stderr, err := parseAndRun(t, NewEvalCommand(nil), append(args, "1 +")...)
	if !errors.Is(err, ErrEvaluation) {
		t.Fatalf("expected ErrEvaluation, got %v", err)
	}
	if stdout != "" {
		t.Fatalf("stdout = %q", stdout)
	}
	if !strings.HasPrefix(stderr, "error: ") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestEvalCommand_MissingExpression(t *testing.T) {
	t.Parallel()
	_, args := calcArgs(t)
	_, stderr, err := parseAndRun(t, NewEvalCommand(nil), append(args, "  ")...)
	if err == nil || !strings.Contains(stderr, "Usage: eval") {
		t.Fatalf("expected usage error, got %v / %q", err, stderr)
	}
}

func TestEvalCommand_UsesHistoryVariables(t *testing.T) {
	t.Parallel()
	historyFile, args := calcArgs(t)
	writeHistory(t, historyFile, "x = 5\n")

	stdout, _, err := parseAndRun(t, NewEvalCommand(nil), append(args, "x*2")...)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "10\n" {
		t.Fatalf("stdout = %q", stdout)
	}

	_, _, err = parseAndRun(t, NewEvalCommand(nil), append(args, "-"+config.KeyNoLoadHistoryVariables, "x*2")...)
	if !errors.Is(err, ErrEvaluation) {
		t.Fatalf("expected x to be undefined, got %v", err)
	}
}

func TestEvalCommand_PersistAndList(t *testing.T) {
	t.Parallel()
	historyFile, args := calcArgs(t)

	if _, _, err := parseAndRun(t, NewEvalCommand(nil), append(args, "2+2")...); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(historyFile); !os.IsNotExist(err) {
		t.Fatalf("eval without -persist wrote history: %v", err)
	}

	if _, _, err := parseAndRun(t, NewEvalCommand(nil), append(args, "-persist", "2+2")...); err != nil {
		t.Fatal(err)
	}
	if _, _, err := parseAndRun(t, NewEvalCommand(nil), append(args, "-persist", "y = 3")...); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(historyFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "2+2 = 4\ny = 3\n" {
		t.Fatalf("history file = %q", data)
	}

	stdout, _, err := parseAndRun(t, NewHistoryCommand(nil), args...)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "0\t2+2 = 4\n1\ty = 3\n" {
		t.Fatalf("history listing = %q", stdout)
	}
}

func TestHistoryCommand_Delete(t *testing.T) {
	t.Parallel()
	historyFile, args := calcArgs(t)
	writeHistory(t, historyFile, "z = 9\n1+1 = 2\n")

	stdout, _, err := parseAndRun(t, NewHistoryCommand(nil), append(args, "-delete", "0")...)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "Deleted entry 0\n" {
		t.Fatalf("stdout = %q", stdout)
	}
	data, _ := os.ReadFile(historyFile)
	if string(data) != "1+1 = 2\n" {
		t.Fatalf("history file = %q", data)
	}

	if _, _, err := parseAndRun(t, NewHistoryCommand(nil), append(args, "-delete", "7")...); err == nil {
		t.Fatal("expected out of range error")
	}
	if _, _, err := parseAndRun(t, NewHistoryCommand(nil), append(args, "extra")...); err == nil {
		t.Fatal("expected error for extra arguments")
	}
}

func TestHistoryCommand_NoPersist(t *testing.T) {
	t.Parallel()
	historyFile, args := calcArgs(t)
	writeHistory(t, historyFile, "1+1 = 2\n")

	stdout, _, err := parseAndRun(t, NewHistoryCommand(nil), append(args, "-"+config.KeyNoPersistHistory)...)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Fatalf("expected empty listing without persistence, got %q", stdout)
	}
}

func TestCalcCommand_ConfigDefaultsAndFlags(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig()
	cfg.SetGlobalOption(config.KeyHistoryLength, "7")
	cfg.SetCommandOption("launch", "prompt", "qalc")

	cmd := NewLaunchCommand(cfg)
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	cmd.SetupFlags(fs)
	if err := fs.Parse([]string{"-" + config.KeyAutomaticSave}); err != nil {
		t.Fatal(err)
	}
	if cmd.opts.HistoryLength != 7 || !cmd.opts.AutomaticSave {
		t.Fatalf("opts = %+v", cmd.opts)
	}
	if got := cmd.sectionOption("prompt"); got != "qalc" {
		t.Fatalf("prompt = %q", got)
	}
	if got := cmd.sectionOption("hint-result"); got != "Add to history" {
		t.Fatalf("hint-result = %q", got)
	}
}

func TestCalcCommand_LogFile(t *testing.T) {
	t.Parallel()
	_, args := calcArgs(t)
	logPath := filepath.Join(t.TempDir(), "calc.log")
	args = append(args, "-log-file", logPath, "-log-level", "debug", "3+4")

	stdout, stderr, err := parseAndRun(t, NewEvalCommand(nil), args...)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "7\n" || stderr != "" {
		t.Fatalf("stdout = %q, stderr = %q", stdout, stderr)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"command":"eval"`) || !strings.Contains(string(data), `"3+4"`) {
		t.Fatalf("log file missing evaluation records:\n%s", data)
	}
}

func TestInteractiveCommands_RequireTerminal(t *testing.T) {
	t.Parallel()
	notTTY := func(int) bool { return false }

	launch := NewLaunchCommand(nil)
	launch.isTerminal = notTTY
	if _, stderr, err := parseAndRun(t, launch); !errors.Is(err, ErrNotTerminal) || !strings.Contains(stderr, "launch needs a terminal") {
		t.Fatalf("launch: %v / %q", err, stderr)
	}

	repl := NewReplCommand(nil)
	repl.isTerminal = notTTY
	if _, stderr, err := parseAndRun(t, repl); !errors.Is(err, ErrNotTerminal) || !strings.Contains(stderr, "repl needs a terminal") {
		t.Fatalf("repl: %v / %q", err, stderr)
	}
}
