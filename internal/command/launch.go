package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/rofi-calc/internal/config"
	"github.com/joeycumines/rofi-calc/internal/launcher"
	"golang.org/x/term"
)

// ErrNotTerminal is returned by the interactive commands when stdin is not
// a terminal.
var ErrNotTerminal = errors.New("standard input is not a terminal")

// LaunchCommand runs the interactive launcher.
type LaunchCommand struct {
	calcCommand
	stdin      *os.File
	isTerminal func(fd int) bool
}

// NewLaunchCommand creates the launch command.
func NewLaunchCommand(cfg *config.Config) *LaunchCommand {
	return &LaunchCommand{
		calcCommand: newCalcCommand(cfg,
			"launch",
			"Evaluate as you type, with history and answer variables",
			"launch [options]",
		),
		stdin:      os.Stdin,
		isTerminal: term.IsTerminal,
	}
}

// Execute shows the launcher until the user leaves it.
func (c *LaunchCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	if !c.isTerminal(int(c.stdin.Fd())) {
		_, _ = fmt.Fprintln(stderr, "launch needs a terminal; use 'rofi-calc eval' for scripts")
		return ErrNotTerminal
	}

	// The launcher owns the screen, so logs only go to a configured file.
	sess, logger, closeSession, err := c.openSession(nil)
	if err != nil {
		return err
	}
	defer closeSession()
	loadHistory(sess, logger)

	return launcher.Run(ctx, sess, launcher.Options{
		Prompt:     c.sectionOption("prompt"),
		HintResult: c.sectionOption("hint-result"),
		Logger:     logger.With("component", "launcher"),
	}, c.stdin, stdout)
}
