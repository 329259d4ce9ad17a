package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause  key.Binding
	Finish key.Binding
	More   key.Binding
	Less   key.Binding
	Skip   key.Binding
	Rest   key.Binding
	Stop   key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Pause:  key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause/resume")),
		Finish: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "finish set")),
		More:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more reps")),
		Less:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "fewer reps")),
		Skip:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip")),
		Rest:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rest")),
		Stop:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "abandon")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "save & quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Finish, k.Skip, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Finish, k.More, k.Less},
		{k.Skip, k.Rest, k.Stop, k.Quit},
	}
}
