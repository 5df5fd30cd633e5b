package launcher

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Commit     key.Binding
	CommitTemp key.Binding
	Delete     key.Binding
	Complete   key.Binding
	Up         key.Binding
	Down       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Commit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "add to history / use entry"),
		),
		// Custom input: commit without persisting.
		CommitTemp: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "add temporarily"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "delete entry"),
		),
		Complete: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "append selection"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// helpLine renders the short help shown under the list.
func (k keyMap) helpLine() string {
	var out string
	for i, b := range []key.Binding{k.Commit, k.CommitTemp, k.Delete, k.Complete, k.Quit} {
		if i > 0 {
			out += " • "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}
