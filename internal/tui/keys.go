package tui

import (
	"strings"

	"github.com/alkime/storytime/internal/session"
	"github.com/alkime/storytime/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the story screen.
type KeyMap struct {
	Record   key.Binding
	Stop     key.Binding
	Generate key.Binding
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Play     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Record: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "record"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open story"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play audio"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// syncEnabled mirrors the controller's flags onto the recording bindings, the
// terminal analog of disabling buttons.
func (k *KeyMap) syncEnabled(snap session.Snapshot, canPlay bool) {
	k.Record.SetEnabled(snap.CanStart)
	k.Stop.SetEnabled(snap.CanStop)
	k.Generate.SetEnabled(snap.CanGenerate)
	k.Play.SetEnabled(canPlay)
}

// ShortHelp returns the enabled bindings worth advertising.
func (k KeyMap) ShortHelp() []key.Binding {
	all := []key.Binding{k.Record, k.Stop, k.Generate, k.Open, k.Play, k.Quit}
	enabled := make([]key.Binding, 0, len(all))
	for _, b := range all {
		if b.Enabled() {
			enabled = append(enabled, b)
		}
	}

	return enabled
}

func renderKeyHelp(keyBinding key.Binding) string {
	return style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)
}

func renderHelp(bindings []key.Binding) string {
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = renderKeyHelp(b)
	}

	return strings.Join(parts, "  ")
}
