package launcher

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/rofi-calc/internal/calc"
	"github.com/joeycumines/rofi-calc/internal/history"
)

// statusLine is the message line under the filter box, in priority order.
func (m Model) statusLine() (string, lipgloss.Style) {
	switch {
	case m.pending:
		return "Evaluating...", m.styles.hint
	case m.hasShown && m.shown.HasError():
		for _, msg := range m.shown.Messages {
			if msg.Severity == calc.SeverityError {
				return "Error: " + msg.Text, m.styles.errorMsg
			}
		}
		return "Error", m.styles.errorMsg
	case m.sess.IsPlotOpen():
		return "Plot mode active", m.styles.message
	case m.hasShown && m.shown.Text != "":
		return "Result: " + m.shown.Text, m.styles.result
	default:
		return "Enter expression", m.styles.hint
	}
}

// diagnostics returns the non-error messages that pass the severity threshold.
func (m Model) diagnostics() []calc.Message {
	if !m.hasShown || m.pending {
		return nil
	}
	var out []calc.Message
	for _, msg := range calc.FilterMessages(m.shown.Messages, m.sess.Threshold()) {
		if msg.Severity < calc.SeverityError {
			out = append(out, msg)
		}
	}
	return out
}

func entryLabel(e history.Entry) string {
	label := e.String()
	if !e.IsAssignment && e.Expression == "" {
		label = e.Result
	}
	if !e.Persistent {
		label = tempPrefix + label
	}
	return label
}

// rows returns the list rows: the commit row, then history newest first.
func (m Model) rows() []string {
	entries := m.sess.History()
	out := make([]string, 0, len(entries)+1)
	out = append(out, m.opts.HintResult)
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entryLabel(entries[i]))
	}
	return out
}

// headerLines counts the lines rendered above the list.
func (m Model) headerLines() int {
	n := 2 + len(m.diagnostics())
	if m.status != "" {
		n++
	}
	return n
}

// listHeight is the number of visible rows, or 0 for unbounded.
func (m Model) listHeight() int {
	if m.height <= 0 {
		return 0
	}
	return max(m.height-m.headerLines()-1, 1)
}

func (m *Model) scrollToCursor() {
	h := m.listHeight()
	if h == 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteByte('\n')

	text, style := m.statusLine()
	b.WriteString(style.Render(m.fit(text, 0)))
	b.WriteByte('\n')
	for _, msg := range m.diagnostics() {
		b.WriteString(m.styles.message.Render(m.fit(msg.String(), 2)))
		b.WriteByte('\n')
	}
	if m.status != "" {
		b.WriteString(m.styles.errorMsg.Render(m.fit(m.status, 0)))
		b.WriteByte('\n')
	}

	rows := m.rows()
	first, last := 0, len(rows)
	if h := m.listHeight(); h > 0 {
		first = min(m.offset, max(len(rows)-h, 0))
		last = min(first+h, len(rows))
	}

	var list strings.Builder
	for i := first; i < last; i++ {
		row := m.fit(rows[i], 3)
		if m.width > 0 {
			row = padRight(row, m.width-3)
		}
		switch {
		case i == m.cursor:
			row = m.styles.selected.Render("> " + row)
		case i > 0 && strings.HasPrefix(rows[i], tempPrefix):
			row = "  " + m.styles.temp.Render(row)
		default:
			row = "  " + m.styles.row.Render(row)
		}
		list.WriteString(row)
		if i < last-1 {
			list.WriteByte('\n')
		}
	}

	bar := scrollbar{
		total:   len(rows),
		visible: last - first,
		offset:  first,
		thumb:   m.styles.thumb,
		track:   m.styles.track,
	}.view()
	if bar != "" {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list.String(), " ", bar))
	} else {
		b.WriteString(list.String())
	}
	b.WriteByte('\n')
	b.WriteString(m.styles.hint.Render(m.fit(m.keys.helpLine(), 0)))
	return b.String()
}

// fit truncates s to the terminal width less reserve cells.
func (m Model) fit(s string, reserve int) string {
	if m.width <= 0 {
		return s
	}
	return truncate(s, m.width-reserve)
}
