package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PlayPause   key.Binding
	Next        key.Binding
	Prev        key.Binding
	NextChapter key.Binding
	PrevChapter key.Binding
	Faster      key.Binding
	Slower      key.Binding
	PitchUp     key.Binding
	PitchDown   key.Binding
	Stop        key.Binding
	Restart     key.Binding
	Copy        key.Binding
	Up          key.Binding
	Down        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		PlayPause:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
		Next:        key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next chunk")),
		Prev:        key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "previous chunk")),
		NextChapter: key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "next chapter")),
		PrevChapter: key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "previous chapter")),
		Faster:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:      key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		PitchUp:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "pitch up")),
		PitchDown:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "pitch down")),
		Stop:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Restart:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart chapter")),
		Copy:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy chunk")),
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "scroll up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "scroll down")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Next, k.Prev, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Stop, k.Restart, k.Copy},
		{k.Next, k.Prev, k.NextChapter, k.PrevChapter},
		{k.Faster, k.Slower, k.PitchUp, k.PitchDown},
		{k.Up, k.Down, k.Help, k.Quit},
	}
}
