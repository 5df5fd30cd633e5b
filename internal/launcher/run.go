package launcher

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/rofi-calc/internal/session"
)

// Run shows the launcher until the user quits or ctx is cancelled, then
// applies the exit policy: unless history is disabled, the last result is
// committed when automatic saving is on, and the history is saved.
func Run(ctx context.Context, sess *session.Session, opts Options, in io.Reader, out io.Writer) error {
	m := New(sess, opts)
	defer m.pipe.close()

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	m.pipe.close()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("launcher: %w", err)
	}
	if fm, ok := final.(Model); ok {
		m = fm
	}
	return finish(sess, m)
}

func finish(sess *session.Session, m Model) error {
	o := sess.Options()
	if o.NoHistory {
		return nil
	}
	if o.AutomaticSave {
		if r, ok := m.Result(); ok {
			sess.Commit(r, true)
		}
	}
	if err := sess.SaveHistory(); err != nil {
		return fmt.Errorf("failed to save history on exit: %w", err)
	}
	return nil
}
