package command

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joeycumines/rofi-calc/internal/config"
)

// followInterval is how often a followed log file is polled.
const followInterval = 200 * time.Millisecond

// LogCommand prints the tail of the log file.
type LogCommand struct {
	*BaseCommand
	config *config.Config
	follow bool
	lines  int
	file   string
}

// NewLogCommand creates a new log command.
func NewLogCommand(cfg *config.Config) *LogCommand {
	return &LogCommand{
		BaseCommand: NewBaseCommand("log", "Show the end of the log file", "log [tail] [options]"),
		config:      cfg,
	}
}

// SetupFlags configures the flags for the log command.
func (c *LogCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.follow, "f", false, "Keep printing lines as they are written")
	fs.IntVar(&c.lines, "n", 10, "Number of lines to show from the end of the file")
	fs.StringVar(&c.file, "file", "", "Log file (overrides log.file)")
}

// Execute prints the last lines of the log, then follows it with -f or the
// tail subcommand until ctx is cancelled.
func (c *LogCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "tail" {
		c.follow = true
		args = args[1:]
	}
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unknown subcommand: %s\n", args[0])
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	path := c.file
	if path == "" {
		cfg := c.config
		if cfg == nil {
			cfg = config.NewConfig()
		}
		path = config.DefaultSchema().Resolve(cfg, config.KeyLogFile)
	}
	if path == "" {
		_, _ = fmt.Fprintln(stderr, "No log file configured. Use -file or set log.file in config.")
		return fmt.Errorf("no log file configured")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	lines := lastLines(f, c.lines)
	// Reading stopped at the end of the file; follow from there.
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to seek log file: %w", err)
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(stdout, line)
	}
	if !c.follow {
		return nil
	}
	err = follow(ctx, path, f, pos, stdout)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// lastLines reads r to the end and returns up to n trailing lines, keeping
// only n in memory.
func lastLines(r io.Reader, n int) []string {
	if n <= 0 {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	ring := make([]string, n)
	count := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	total := min(count, n)
	out := make([]string, total)
	for i := range out {
		out[i] = ring[(count-total+i)%n]
	}
	return out
}

// follow prints complete lines appended to the file. When the file at path
// shrinks below the read position (the log rolled over) it is reopened and
// read from the start.
func follow(ctx context.Context, path string, f *os.File, pos int64, stdout io.Writer) error {
	cur := f
	defer func() {
		if cur != f {
			_ = cur.Close()
		}
	}()
	reader := bufio.NewReader(cur)
	var partial []byte
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if info, err := os.Stat(path); err == nil && info.Size() < pos {
			nf, err := os.Open(path)
			if err != nil {
				continue
			}
			if cur != f {
				_ = cur.Close()
			}
			cur, reader, partial, pos = nf, bufio.NewReader(nf), nil, 0
		}

		for {
			chunk, err := reader.ReadBytes('\n')
			pos += int64(len(chunk))
			partial = append(partial, chunk...)
			if err != nil {
				break
			}
			_, _ = stdout.Write(partial)
			partial = partial[:0]
		}
	}
}
