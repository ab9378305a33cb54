package ui

import "github.com/charmbracelet/lipgloss"

// ═══════════════════════════════════════════════════════════════════════════════
// STYLES STRUCT
// ═══════════════════════════════════════════════════════════════════════════════

// Styles contains pre-computed lipgloss styles for every dashboard region.
// Keeping them here separates the palette from layout code.
type Styles struct {
	// Theme reference
	theme Theme

	// ─────────────────────────────────────────────────────────────────────────
	// Layout styles - main regions
	// ─────────────────────────────────────────────────────────────────────────

	// Header is the top title bar.
	Header lipgloss.Style

	// Footer is the bottom help bar.
	Footer lipgloss.Style

	// ─────────────────────────────────────────────────────────────────────────
	// Header components
	// ─────────────────────────────────────────────────────────────────────────

	// Logo is the product name in the header.
	Logo lipgloss.Style

	// HeaderContext shows the provider and model next to the logo.
	HeaderContext lipgloss.Style

	// HeaderStatus shows uptime on the right edge.
	HeaderStatus lipgloss.Style

	// ─────────────────────────────────────────────────────────────────────────
	// Section and table styles
	// ─────────────────────────────────────────────────────────────────────────

	// SectionTitle heads the strategies and events sections.
	SectionTitle lipgloss.Style

	// TableHeader is the strategy table's column row.
	TableHeader lipgloss.Style

	// TableRow is a plain strategy row.
	TableRow lipgloss.Style

	// Good, Warn and Bad color rate values by health.
	Good lipgloss.Style
	Warn lipgloss.Style
	Bad  lipgloss.Style

	// DotSuccess and DotFailure are the recent-outcome markers.
	DotSuccess lipgloss.Style
	DotFailure lipgloss.Style

	// ─────────────────────────────────────────────────────────────────────────
	// Event feed styles
	// ─────────────────────────────────────────────────────────────────────────

	// EventTime is the timestamp column.
	EventTime lipgloss.Style

	// EventType is the event-type column.
	EventType lipgloss.Style

	// EventError colors error details.
	EventError lipgloss.Style

	// Empty is placeholder text for sections with nothing to show.
	Empty lipgloss.Style

	// PausedBadge marks the feed while refresh is paused.
	PausedBadge lipgloss.Style
}

// ═══════════════════════════════════════════════════════════════════════════════
// STYLE INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// NewStyles creates a complete Styles instance from a theme. All styles
// are pre-computed so View never allocates them per frame.
func NewStyles(theme Theme) Styles {
	s := Styles{
		theme: theme,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Layout
	// ─────────────────────────────────────────────────────────────────────────

	s.Header = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Foreground)).
		Background(lipgloss.Color(theme.HeaderBg)).
		Padding(0, 1)

	s.Footer = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted)).
		Background(lipgloss.Color(theme.FooterBg)).
		Padding(0, 1)

	// ─────────────────────────────────────────────────────────────────────────
	// Header components
	// ─────────────────────────────────────────────────────────────────────────

	s.Logo = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Primary)).
		Background(lipgloss.Color(theme.HeaderBg)).
		Bold(true)

	s.HeaderContext = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Secondary)).
		Background(lipgloss.Color(theme.HeaderBg)).
		MarginLeft(2)

	s.HeaderStatus = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted)).
		Background(lipgloss.Color(theme.HeaderBg))

	// ─────────────────────────────────────────────────────────────────────────
	// Sections and table
	// ─────────────────────────────────────────────────────────────────────────

	s.SectionTitle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Primary)).
		Bold(true).
		MarginTop(1)

	s.TableHeader = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted)).
		Bold(true)

	s.TableRow = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Foreground))

	s.Good = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Success))
	s.Warn = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Warning))
	s.Bad = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Error))

	s.DotSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Success))
	s.DotFailure = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Error))

	// ─────────────────────────────────────────────────────────────────────────
	// Event feed
	// ─────────────────────────────────────────────────────────────────────────

	s.EventTime = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted))

	s.EventType = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Secondary))

	s.EventError = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Error))

	s.Empty = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted)).
		Italic(true)

	s.PausedBadge = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Background)).
		Background(lipgloss.Color(theme.Warning)).
		Bold(true).
		Padding(0, 1)

	return s
}
