package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/rofi-calc/internal/calc"
	"github.com/joeycumines/rofi-calc/internal/config"
)

// ErrEvaluation is returned by eval when the expression fails or times out.
var ErrEvaluation = errors.New("evaluation failed")

// EvalCommand evaluates a single expression.
type EvalCommand struct {
	calcCommand
	persist bool
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(cfg *config.Config) *EvalCommand {
	return &EvalCommand{
		calcCommand: newCalcCommand(cfg,
			"eval",
			"Evaluate an expression and print the result",
			"eval [options] <expression...>",
		),
	}
}

// SetupFlags adds -persist to the calculator flags.
func (c *EvalCommand) SetupFlags(fs *flag.FlagSet) {
	c.calcCommand.SetupFlags(fs)
	fs.BoolVar(&c.persist, "persist", false, "Add the result to the history file")
}

// Execute evaluates the arguments joined by spaces. Variables assigned in
// the history are available. Diagnostics at or above the severity threshold
// go to stderr.
func (c *EvalCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	expression := strings.TrimSpace(strings.Join(args, " "))
	if expression == "" {
		_, _ = fmt.Fprintf(stderr, "Usage: %s\n", c.Usage())
		return fmt.Errorf("missing expression")
	}

	sess, logger, closeSession, err := c.openSession(stderr)
	if err != nil {
		return err
	}
	defer closeSession()
	loadHistory(sess, logger)

	r, err := sess.EvaluateSync(ctx, expression)
	if err != nil {
		return err
	}
	for _, m := range calc.FilterMessages(r.Messages, sess.Threshold()) {
		_, _ = fmt.Fprintln(stderr, m.String())
	}
	if r.HasError() {
		return ErrEvaluation
	}
	_, _ = fmt.Fprintln(stdout, r.Text)

	if !c.persist {
		return nil
	}
	if !sess.Commit(r, true) {
		logger.Info("result not added to history", "expression", expression)
		return nil
	}
	if err := sess.SaveHistory(); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
