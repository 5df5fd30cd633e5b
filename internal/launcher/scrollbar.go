package launcher

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// scrollbar renders a one-column track beside the row list.
type scrollbar struct {
	total   int
	visible int
	offset  int

	thumb lipgloss.Style
	track lipgloss.Style
}

// view returns exactly visible lines, or "" when every row fits.
func (s scrollbar) view() string {
	if s.visible <= 0 || s.total <= s.visible {
		return ""
	}
	maxOffset := s.total - s.visible
	offset := min(max(s.offset, 0), maxOffset)

	// Thumb height is proportional to the visible share of rows.
	thumbHeight := min(max(s.visible*s.visible/s.total, 1), s.visible)
	maxTop := s.visible - thumbHeight
	thumbTop := 0
	if maxTop > 0 {
		thumbTop = min(offset*maxTop/maxOffset, maxTop)
	}

	var b strings.Builder
	for i := 0; i < s.visible; i++ {
		if i >= thumbTop && i < thumbTop+thumbHeight {
			b.WriteString(s.thumb.Render("┃"))
		} else {
			b.WriteString(s.track.Render("│"))
		}
		if i < s.visible-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
