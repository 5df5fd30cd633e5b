//go:build unix

package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
)

// Terminal is a pseudo terminal for driving interactive programs in tests.
// The program under test reads and writes TTY; the test types into and
// reads from the other end.
type Terminal struct {
	TTY *os.File

	master *os.File
	mu     sync.Mutex
	output strings.Builder
	done   chan struct{}
}

// OpenTerminal opens a 24x80 pseudo terminal, skipping the test when the
// platform cannot provide one. It is closed when the test ends.
func OpenTerminal(t testing.TB) *Terminal {
	t.Helper()
	master, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo terminal unavailable: %v", err)
	}
	if err := pty.Setsize(master, &pty.Winsize{Rows: 24, Cols: 80}); err != nil {
		_ = master.Close()
		_ = tty.Close()
		t.Fatalf("failed to size pseudo terminal: %v", err)
	}
	term := &Terminal{
		TTY:    tty,
		master: master,
		done:   make(chan struct{}),
	}
	go term.read()
	t.Cleanup(term.Close)
	return term
}

func (p *Terminal) read() {
	defer close(p.done)
	buf := make([]byte, 4096)
	for {
		n, err := p.master.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.output.Write(buf[:n])
			p.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Type sends keystrokes to the program.
func (p *Terminal) Type(t testing.TB, keys string) {
	t.Helper()
	if _, err := io.WriteString(p.master, keys); err != nil {
		t.Fatalf("failed to type %q: %v", keys, err)
	}
}

// Output returns everything the program has written so far, escape
// sequences included.
func (p *Terminal) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output.String()
}

// WaitFor waits until the output contains text.
func (p *Terminal) WaitFor(t testing.TB, text string, timeout time.Duration) {
	t.Helper()
	err := Poll(context.Background(), func() bool {
		return strings.Contains(p.Output(), text)
	}, timeout, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("%v: output does not contain %q:\n%q", err, text, p.Output())
	}
}

// Close closes both ends and waits for the reader to stop.
func (p *Terminal) Close() {
	_ = p.TTY.Close()
	if err := p.master.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		fmt.Fprintf(os.Stderr, "testutil: closing pseudo terminal: %v\n", err)
	}
	<-p.done
}
