// Package launcher is the interactive calculator mode: a filter box that
// evaluates as you type, a message line, a commit action and the history.
package launcher

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joeycumines/rofi-calc/internal/calc"
	"github.com/joeycumines/rofi-calc/internal/history"
	"github.com/joeycumines/rofi-calc/internal/session"
)

const tempPrefix = "(tmp) "

// Options configures the launcher.
type Options struct {
	// Prompt precedes the filter box.
	Prompt string
	// HintResult labels the commit row.
	HintResult string
	Logger     *slog.Logger
}

// resultMsg carries a worker result into the event loop.
type resultMsg session.Result

// resultPipe moves results from the worker goroutine to the event loop.
// Once closed, late results are dropped instead of blocking the worker.
type resultPipe struct {
	ch   chan session.Result
	done chan struct{}
	once sync.Once
}

func newResultPipe() *resultPipe {
	return &resultPipe{ch: make(chan session.Result, 8), done: make(chan struct{})}
}

func (p *resultPipe) send(r session.Result) {
	select {
	case p.ch <- r:
	case <-p.done:
	}
}

func (p *resultPipe) close() { p.once.Do(func() { close(p.done) }) }

// Model is the bubbletea model of the launcher.
type Model struct {
	sess   *session.Session
	opts   Options
	keys   keyMap
	styles styles
	logger *slog.Logger
	pipe   *resultPipe

	input textinput.Model

	// latest is the ID of the newest posted query; pending is true until
	// its result arrives.
	latest   uuid.UUID
	pending  bool
	shown    session.Result
	hasShown bool
	status   string

	// cursor 0 is the commit row, 1.. are history entries newest first.
	cursor int
	offset int
	width  int
	height int
}

// New returns a launcher over sess.
func New(sess *session.Session, opts Options) Model {
	if opts.HintResult == "" {
		opts.HintResult = "Add to history"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Prompt = opts.Prompt + " "
	if opts.Prompt == "" {
		ti.Prompt = "> "
	}
	ti.CharLimit = 4096
	ti.Focus()

	return Model{
		sess:   sess,
		opts:   opts,
		keys:   defaultKeyMap(),
		styles: defaultStyles(),
		logger: logger,
		pipe:   newResultPipe(),
		input:  ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForResult())
}

func (m Model) waitForResult() tea.Cmd {
	p := m.pipe
	return func() tea.Msg {
		select {
		case r := <-p.ch:
			return resultMsg(r)
		case <-p.done:
			return nil
		}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.scrollToCursor()
		return m, nil

	case resultMsg:
		m.applyResult(session.Result(msg))
		return m, m.waitForResult()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Commit):
			if m.cursor == 0 {
				m.commit(true)
			} else {
				m.useSelected()
			}
			return m, nil
		case key.Matches(msg, m.keys.CommitTemp):
			m.commit(false)
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			m.deleteSelected()
			return m, nil
		case key.Matches(msg, m.keys.Complete):
			m.completeSelected()
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.moveCursor(-1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.moveCursor(1)
			return m, nil
		}
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != prev {
		m.inputChanged()
	}
	return m, cmd
}

func (m *Model) inputChanged() {
	m.status = ""
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		m.clearResult()
		return
	}
	id, err := m.sess.Evaluate(text, m.pipe.send)
	switch {
	case errors.Is(err, session.ErrDuplicateQuery):
		return
	case err != nil:
		m.status = err.Error()
		return
	}
	m.latest, m.pending = id, true
}

func (m *Model) clearResult() {
	m.sess.ClearLastExpression()
	m.latest, m.pending = uuid.Nil, false
	m.shown, m.hasShown = session.Result{}, false
}

func (m *Model) setInput(text string) {
	m.input.SetValue(text)
	m.input.CursorEnd()
	m.inputChanged()
}

func (m *Model) applyResult(r session.Result) {
	if r.ID != m.latest {
		m.logger.Debug("ignoring superseded result", "query", r.Expression, "id", r.ID)
		return
	}
	m.pending = false
	m.shown, m.hasShown = r, true
}

// commit adds the displayed result to the history and the answer chain.
func (m *Model) commit(persistent bool) {
	if m.pending || !m.hasShown {
		return
	}
	if !m.sess.Commit(m.shown, persistent) {
		return
	}
	m.cursor, m.offset = 0, 0
	if m.sess.Options().NoAutoClearFilter {
		// The same text must be evaluable again to show its new answer context.
		m.sess.ClearLastExpression()
		return
	}
	m.input.SetValue("")
	m.clearResult()
}

func (m *Model) moveCursor(delta int) {
	m.cursor = min(max(m.cursor+delta, 0), len(m.sess.History()))
	m.scrollToCursor()
}

// selectedEntry returns the history entry under the cursor.
func (m Model) selectedEntry() (history.Entry, bool) {
	entries := m.sess.History()
	if m.cursor < 1 || m.cursor > len(entries) {
		return history.Entry{}, false
	}
	return entries[len(entries)-m.cursor], true
}

// selectedValue is the text an entry contributes to the filter: its result,
// or the variable name for an assignment. On the commit row it is the
// displayed result.
func (m Model) selectedValue() string {
	if m.cursor == 0 {
		if m.hasShown && !m.shown.HasError() && !m.shown.Plot {
			return m.shown.Text
		}
		return ""
	}
	e, ok := m.selectedEntry()
	if !ok {
		return ""
	}
	if e.IsAssignment {
		name, _, _ := calc.ParseAssignment(e.Expression)
		return name
	}
	return e.Result
}

func (m *Model) useSelected() {
	if v := m.selectedValue(); v != "" {
		m.cursor, m.offset = 0, 0
		m.setInput(v)
	}
}

func (m *Model) completeSelected() {
	if v := m.selectedValue(); v != "" {
		m.setInput(m.input.Value() + v)
	}
}

func (m *Model) deleteSelected() {
	if m.cursor < 1 {
		return
	}
	n := len(m.sess.History())
	if err := m.sess.EraseHistory(n - m.cursor); err != nil {
		m.logger.Warn("failed to delete history entry", "error", err)
		m.status = err.Error()
		return
	}
	m.cursor = min(m.cursor, n-1)
	m.scrollToCursor()
	// Results may depend on a variable the entry defined.
	if m.input.Value() != "" {
		m.sess.ClearLastExpression()
		m.inputChanged()
	}
}

// Result returns the displayed result, if any.
func (m Model) Result() (session.Result, bool) {
	return m.shown, m.hasShown && !m.pending
}

// Input returns the filter text.
func (m Model) Input() string { return m.input.Value() }
