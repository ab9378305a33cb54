package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the dashboard's keyboard shortcuts. It implements the
// help.KeyMap interface for automatic help text generation.
type KeyMap struct {
	// ═══════════════════════════════════════════════════════════════════════════
	// CORE ACTIONS
	// ═══════════════════════════════════════════════════════════════════════════

	// Pause freezes the event feed; counters keep accumulating.
	Pause key.Binding

	// Clear empties the visible event feed.
	Clear key.Binding

	// Quit exits the dashboard.
	Quit key.Binding

	// ═══════════════════════════════════════════════════════════════════════════
	// FEED NAVIGATION
	// ═══════════════════════════════════════════════════════════════════════════

	// Scroll is display-only: the feed viewport handles the actual
	// up/down/pgup/pgdn keys through its own keymap.
	Scroll key.Binding

	// Top jumps to the oldest visible event.
	Top key.Binding

	// Bottom jumps back to the newest event.
	Bottom key.Binding

	// ═══════════════════════════════════════════════════════════════════════════
	// HELP
	// ═══════════════════════════════════════════════════════════════════════════

	// Help toggles the expanded help view.
	Help key.Binding
}

// DefaultKeyMap returns the default keyboard shortcuts.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause feed"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear feed"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),

		Scroll: key.NewBinding(
			key.WithKeys("up", "down", "pgup", "pgdown"),
			key.WithHelp("↑/↓", "scroll feed"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home/g", "oldest"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end/G", "newest"),
		),

		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns the bindings shown in the one-line help view.
// This implements part of the help.KeyMap interface.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Pause,
		k.Scroll,
		k.Help,
		k.Quit,
	}
}

// FullHelp returns the bindings shown in the expanded help view.
// This implements part of the help.KeyMap interface.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Column 1: core actions
		{
			k.Pause,
			k.Clear,
			k.Quit,
		},
		// Column 2: feed navigation
		{
			k.Scroll,
			k.Top,
			k.Bottom,
		},
		// Column 3: help
		{
			k.Help,
		},
	}
}
