package launcher

import "github.com/charmbracelet/lipgloss"

type styles struct {
	prompt   lipgloss.Style
	result   lipgloss.Style
	errorMsg lipgloss.Style
	hint     lipgloss.Style
	message  lipgloss.Style
	selected lipgloss.Style
	row      lipgloss.Style
	temp     lipgloss.Style
	thumb    lipgloss.Style
	track    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		prompt:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		result:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		errorMsg: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		hint:     lipgloss.NewStyle().Faint(true),
		message:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		selected: lipgloss.NewStyle().Reverse(true),
		row:      lipgloss.NewStyle(),
		temp:     lipgloss.NewStyle().Italic(true),
		thumb:    lipgloss.NewStyle().Foreground(lipgloss.Color("57")),
		track:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}
