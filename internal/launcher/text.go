package launcher

import (
	"strings"

	"github.com/rivo/uniseg"
)

const ellipsis = "…"

// truncate shortens s to at most maxWidth terminal cells, cutting on
// grapheme cluster boundaries and marking the cut with an ellipsis.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= maxWidth {
		return s
	}
	target := maxWidth - uniseg.StringWidth(ellipsis)
	if target < 0 {
		return ""
	}

	var b strings.Builder
	width := 0
	state := -1
	remaining := s
	for len(remaining) > 0 {
		var cluster string
		var w int
		cluster, remaining, w, state = uniseg.FirstGraphemeClusterInString(remaining, state)
		if width+w > target {
			break
		}
		width += w
		b.WriteString(cluster)
	}
	b.WriteString(ellipsis)
	return b.String()
}

// padRight pads s with spaces to width cells.
func padRight(s string, width int) string {
	if gap := width - uniseg.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
