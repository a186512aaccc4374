package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard bindings for the terminal. Printable keys
// belong to the input line, so chrome actions use control keys only.
type KeyMap struct {
	Submit       key.Binding
	Cancel       key.Binding
	Quit         key.Binding
	HistoryPrev  key.Binding
	HistoryNext  key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding
	ScrollBottom key.Binding
	NextView     key.Binding
	SelectUp     key.Binding
	SelectDown   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel prompt"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		HistoryPrev: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "older command"),
		),
		HistoryNext: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "newer command"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		ScrollBottom: key.NewBinding(
			key.WithKeys("ctrl+end", "ctrl+b"),
			key.WithHelp("ctrl+b", "follow output"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		SelectUp: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "select up"),
		),
		SelectDown: key.NewBinding(
			key.WithKeys("ctrl+j"),
			key.WithHelp("ctrl+j", "select down"),
		),
	}
}
