package command

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
)

// HelpCommand lists the commands, or describes one.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand("help", "Display help information for commands", "help [command]"),
		registry:    registry,
	}
}

func (c *HelpCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return c.describe(args[0], stdout, stderr)
	}
	_, _ = fmt.Fprint(stdout, "rofi-calc - a calculator that evaluates as you type\n\n"+
		"Usage: rofi-calc [command] [options] [args...]\n\n"+
		"Commands:\n")
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, name := range c.registry.List() {
		if cmd, err := c.registry.Get(name); err == nil {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
		}
	}
	_ = w.Flush()
	_, _ = fmt.Fprint(stdout, "\nWithout a command, rofi-calc starts the launcher.\n"+
		"Use 'rofi-calc help <command>' for the flags of a command.\n")
	return nil
}

func (c *HelpCommand) describe(name string, stdout, stderr io.Writer) error {
	cmd, err := c.registry.Get(name)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", name)
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Command: %s\nDescription: %s\nUsage: %s\n",
		cmd.Name(), cmd.Description(), cmd.Usage())

	var flags bytes.Buffer
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(&flags)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if flags.Len() > 0 {
		_, _ = fmt.Fprintf(stdout, "\nFlags:\n%s", flags.String())
	}
	return nil
}

// VersionCommand prints the version.
type VersionCommand struct {
	*BaseCommand
	version string
}

func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand("version", "Display version information", "version"),
		version:     version,
	}
}

func (c *VersionCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "rofi-calc version %s\n", c.version)
	return nil
}

// noArgs rejects positional arguments for commands that take none.
func noArgs(args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return nil
	}
	_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
	return fmt.Errorf("unexpected arguments")
}
