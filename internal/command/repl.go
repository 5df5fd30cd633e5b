package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/rofi-calc/internal/config"
	"github.com/joeycumines/rofi-calc/internal/repl"
	"golang.org/x/term"
)

// ReplCommand runs the line-oriented calculator.
type ReplCommand struct {
	calcCommand
	stdin      *os.File
	isTerminal func(fd int) bool
}

// NewReplCommand creates the repl command.
func NewReplCommand(cfg *config.Config) *ReplCommand {
	return &ReplCommand{
		calcCommand: newCalcCommand(cfg,
			"repl",
			"Evaluate one line at a time, with completion",
			"repl [options]",
		),
		stdin:      os.Stdin,
		isTerminal: term.IsTerminal,
	}
}

// Execute reads lines until exit.
func (c *ReplCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	if !c.isTerminal(int(c.stdin.Fd())) {
		_, _ = fmt.Fprintln(stderr, "repl needs a terminal; use 'rofi-calc eval' for scripts")
		return ErrNotTerminal
	}

	sess, logger, closeSession, err := c.openSession(nil)
	if err != nil {
		return err
	}
	defer closeSession()
	loadHistory(sess, logger)

	return repl.Run(ctx, sess, repl.Options{Prompt: c.sectionOption("prompt")}, stdout)
}
