// Package ui renders the live session dashboard: strategy performance,
// the event feed, and session counters, over the shared event bus.
package ui

import "sort"

// ═══════════════════════════════════════════════════════════════════════════════
// THEME DEFINITION
// ═══════════════════════════════════════════════════════════════════════════════

// Theme defines a color palette for the dashboard. Colors are hex strings
// for compatibility with lipgloss.Color().
type Theme struct {
	// Metadata
	Name string

	// Base colors
	Background string
	Foreground string
	Border     string

	// Semantic colors
	Primary   string // Emphasis, the logo, focused values
	Secondary string // Supporting labels and context
	Success   string // Healthy rates, successful outcomes
	Warning   string // Middling rates, paused state
	Error     string // Failures and error events
	Muted     string // Dimmed text, placeholders, timestamps

	// Layout backgrounds
	HeaderBg string
	FooterBg string

	// GlamourStyle is the glamour theme used when rendering markdown
	// reports alongside this palette.
	GlamourStyle string
}

// ═══════════════════════════════════════════════════════════════════════════════
// BUILT-IN THEMES
// ═══════════════════════════════════════════════════════════════════════════════

// ThemeDefault is a VS Code dark-inspired palette, optimized for
// readability and low eye strain.
var ThemeDefault = Theme{
	Name: "Default (VS Code Dark)",

	Background: "#1e1e1e",
	Foreground: "#d4d4d4",
	Border:     "#3e3e42",

	Primary:   "#007acc", // Blue
	Secondary: "#9cdcfe", // Cyan
	Success:   "#4ec9b0", // Teal
	Warning:   "#dcdcaa", // Yellow
	Error:     "#f48771", // Salmon
	Muted:     "#6a737d", // Gray

	HeaderBg: "#252526",
	FooterBg: "#181818",

	GlamourStyle: "dark",
}

// ThemeDracula is the popular Dracula scheme, vibrant purple and pink
// tones with strong contrast.
var ThemeDracula = Theme{
	Name: "Dracula",

	Background: "#282a36",
	Foreground: "#f8f8f2",
	Border:     "#6272a4",

	Primary:   "#bd93f9", // Purple
	Secondary: "#8be9fd", // Cyan
	Success:   "#50fa7b", // Green
	Warning:   "#f1fa8c", // Yellow
	Error:     "#ff5555", // Red
	Muted:     "#6272a4", // Comment gray

	HeaderBg: "#21222c",
	FooterBg: "#191a21",

	GlamourStyle: "dracula",
}

// ThemeNord is the arctic Nord palette, low contrast and easy on the eyes.
var ThemeNord = Theme{
	Name: "Nord",

	Background: "#2e3440", // Nord0
	Foreground: "#eceff4", // Nord6
	Border:     "#4c566a", // Nord3

	Primary:   "#88c0d0", // Frost cyan
	Secondary: "#81a1c1", // Frost blue
	Success:   "#a3be8c", // Aurora green
	Warning:   "#ebcb8b", // Aurora yellow
	Error:     "#bf616a", // Aurora red
	Muted:     "#4c566a", // Nord3

	HeaderBg: "#3b4252", // Nord1
	FooterBg: "#2e3440", // Nord0

	GlamourStyle: "dark",
}

// ThemeGruvbox is the retro groove scheme, warm earthy tones.
var ThemeGruvbox = Theme{
	Name: "Gruvbox Dark",

	Background: "#282828",
	Foreground: "#ebdbb2",
	Border:     "#504945",

	Primary:   "#fe8019", // Orange
	Secondary: "#83a598", // Blue
	Success:   "#b8bb26", // Bright green
	Warning:   "#fabd2f", // Bright yellow
	Error:     "#fb4934", // Bright red
	Muted:     "#928374", // Gray

	HeaderBg: "#3c3836",
	FooterBg: "#1d2021",

	GlamourStyle: "dark",
}

// ═══════════════════════════════════════════════════════════════════════════════
// THEME REGISTRY
// ═══════════════════════════════════════════════════════════════════════════════

// availableThemes maps theme IDs to their Theme definitions.
var availableThemes = map[string]Theme{
	"default": ThemeDefault,
	"dracula": ThemeDracula,
	"nord":    ThemeNord,
	"gruvbox": ThemeGruvbox,
}

// GetTheme retrieves a theme by ID. Unknown IDs fall back to ThemeDefault.
func GetTheme(id string) Theme {
	if theme, ok := availableThemes[id]; ok {
		return theme
	}
	return ThemeDefault
}

// ThemeNames returns the available theme IDs, sorted for stable display.
func ThemeNames() []string {
	names := make([]string, 0, len(availableThemes))
	for name := range availableThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
