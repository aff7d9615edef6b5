package hud

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the HUD keybindings.
type KeyMap struct {
	Pause  key.Binding
	Stop   key.Binding
	Detach key.Binding
}

// DefaultKeyMap returns the default HUD keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause/resume"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s", "stop"),
		),
		Detach: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "detach"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Stop, k.Detach}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
