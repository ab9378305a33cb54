package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rwalling/arbiter/internal/metrics"
)

// ═══════════════════════════════════════════════════════════════════════════════
// APPLICATION CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════

// Config holds configuration options for starting the dashboard.
type Config struct {
	// Collector supplies session counters and the event feed. Required.
	Collector *metrics.Collector

	// Performance supplies the per-strategy aggregates table. Nil renders
	// the table with empty rows.
	Performance AggregatesSource

	// Provider is the model provider name shown in the header.
	Provider string

	// Theme is the name of the color theme to use (defaults to "default").
	Theme string

	// Refresh is how often the feed and panels re-read their sources.
	Refresh time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: "scripted",
		Theme:    "default",
		Refresh:  time.Second,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// APPLICATION INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// New creates the dashboard program with the given configuration.
// The caller is responsible for running it.
func New(cfg *Config) (*tea.Program, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Collector == nil {
		return nil, fmt.Errorf("dashboard requires a metrics collector")
	}
	if cfg.Theme == "" {
		cfg.Theme = "default"
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = time.Second
	}

	prog := tea.NewProgram(newModel(cfg), tea.WithAltScreen())
	return prog, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// PUBLIC API
// ═══════════════════════════════════════════════════════════════════════════════

// Run starts the dashboard and blocks until it exits.
// This is a convenience wrapper around tea.Program.Run().
func Run(cfg *Config) error {
	prog, err := New(cfg)
	if err != nil {
		return err
	}

	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}

	return nil
}
