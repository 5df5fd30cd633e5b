package command

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/joeycumines/rofi-calc/internal/config"
)

// HistoryCommand lists or edits the stored history.
type HistoryCommand struct {
	calcCommand
	delete int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(cfg *config.Config) *HistoryCommand {
	return &HistoryCommand{
		calcCommand: newCalcCommand(cfg,
			"history",
			"List the stored history, or delete an entry",
			"history [options]",
		),
		delete: -1,
	}
}

// SetupFlags adds -delete to the calculator flags.
func (c *HistoryCommand) SetupFlags(fs *flag.FlagSet) {
	c.calcCommand.SetupFlags(fs)
	fs.IntVar(&c.delete, "delete", -1, "Delete the entry at this index (as listed) and save")
}

// Execute lists the entries oldest first, one "index<TAB>entry" per line.
func (c *HistoryCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}

	sess, _, closeSession, err := c.openSession(stderr)
	if err != nil {
		return err
	}
	defer closeSession()
	if err := sess.LoadHistory(); err != nil {
		return err
	}

	if c.delete >= 0 {
		if err := sess.EraseHistory(c.delete); err != nil {
			return err
		}
		if err := sess.SaveHistory(); err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "Deleted entry %d\n", c.delete)
		return nil
	}

	for i, e := range sess.History() {
		_, _ = fmt.Fprintf(stdout, "%d\t%s\n", i, e.String())
	}
	return nil
}
