package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/rwalling/arbiter/internal/metrics"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DASHBOARD MODEL
// ═══════════════════════════════════════════════════════════════════════════════

// feedCapacity is how many recent events the feed asks the collector for.
const feedCapacity = 50

// AggregatesSource supplies the per-strategy performance numbers the
// strategies table renders. The outcome tracker satisfies it; tests feed
// fixed snapshots.
type AggregatesSource interface {
	Snapshot() map[types.Strategy]types.Aggregates
}

// Model is the Bubble Tea model for the dashboard. It is a pure renderer:
// all live state stays in the metrics collector and the aggregates
// source, and the model re-reads them on every tick.
type Model struct {
	// Dimensions (set on the first WindowSizeMsg)
	width  int
	height int
	ready  bool

	// Theme and styles
	themeName string
	styles    Styles

	// Data sources
	collector *metrics.Collector
	session   *metrics.Dashboard
	perf      AggregatesSource
	provider  string

	// Components
	feed viewport.Model
	help help.Model
	keys KeyMap

	// Feed state
	paused    bool
	clearedAt time.Time
	refresh   time.Duration
}

// newModel assembles the dashboard model from a validated config.
func newModel(cfg *Config) Model {
	vp := viewport.New(0, 0)
	vp.SetContent("")

	h := help.New()
	h.ShowAll = false

	theme := GetTheme(cfg.Theme)

	return Model{
		themeName: cfg.Theme,
		styles:    NewStyles(theme),

		collector: cfg.Collector,
		session:   metrics.NewDashboard(cfg.Collector),
		perf:      cfg.Performance,
		provider:  cfg.Provider,

		feed: vp,
		help: h,
		keys: DefaultKeyMap(),

		refresh: cfg.Refresh,
	}
}
