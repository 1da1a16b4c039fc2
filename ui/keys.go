package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	SortAsc  key.Binding
	SortDesc key.Binding
	Reset    key.Binding
	Pause    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "prev column")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "next column")),
	SortAsc:  key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "sort asc")),
	SortDesc: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "sort desc")),
	Reset:    key.NewBinding(key.WithKeys("x", "enter"), key.WithHelp("x/enter", "reset circuit")),
	Pause:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "pause")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SortAsc, k.SortDesc, k.Reset, k.Pause, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.SortAsc, k.SortDesc, k.Reset},
		{k.Pause, k.Help, k.Quit},
	}
}
