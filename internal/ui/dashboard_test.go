package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/internal/metrics"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TEST FIXTURES
// ═══════════════════════════════════════════════════════════════════════════════

// stubAggregates serves a fixed snapshot, standing in for the tracker.
type stubAggregates struct {
	snap map[types.Strategy]types.Aggregates
}

func (s *stubAggregates) Snapshot() map[types.Strategy]types.Aggregates {
	out := make(map[types.Strategy]types.Aggregates, len(s.snap))
	for k, v := range s.snap {
		out[k] = v
	}
	return out
}

func testModel(t *testing.T, events *bus.Bus, perf AggregatesSource) Model {
	t.Helper()

	collector := metrics.NewCollector(events)
	collector.Start()
	t.Cleanup(collector.Stop)

	cfg := DefaultConfig()
	cfg.Collector = collector
	cfg.Performance = perf
	return newModel(cfg)
}

func resize(t *testing.T, m Model, w, h int) Model {
	t.Helper()

	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return next
}

func press(t *testing.T, m Model, r rune) (Model, tea.Cmd) {
	t.Helper()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return next, cmd
}

// waitFor polls until the condition holds; bus delivery is async.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION
// ═══════════════════════════════════════════════════════════════════════════════

func TestNewRequiresCollector(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("Expected error for nil config (no collector)")
	}
	if _, err := New(&Config{}); err == nil {
		t.Error("Expected error for config without collector")
	}
}

func TestNewWithCollector(t *testing.T) {
	cfg := &Config{Collector: metrics.NewCollector(nil)}

	prog, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if prog == nil {
		t.Fatal("Expected a program")
	}
	if cfg.Theme != "default" || cfg.Refresh != time.Second {
		t.Errorf("Expected defaults to be filled in, got theme=%q refresh=%v", cfg.Theme, cfg.Refresh)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// RENDERING
// ═══════════════════════════════════════════════════════════════════════════════

func TestViewBeforeFirstResize(t *testing.T) {
	m := testModel(t, nil, nil)

	if got := m.View(); got != "starting dashboard..." {
		t.Errorf("Expected placeholder before the first WindowSizeMsg, got %q", got)
	}
}

func TestViewRendersPanels(t *testing.T) {
	perf := &stubAggregates{snap: map[types.Strategy]types.Aggregates{
		types.StrategyCircuitBreaker: {
			SuccessRate:     0.9,
			AvgResponseTime: 0.3,
			UsageCount:      12,
			Recent: []types.Outcome{
				{Success: true}, {Success: false}, {Success: true},
			},
		},
	}}
	m := resize(t, testModel(t, nil, perf), 100, 40)

	view := m.View()
	for _, want := range []string{
		"ARBITER",
		"provider: scripted",
		"STRATEGIES",
		"EVENTS",
		"circuit_breaker",
		"90.0%",
		"0.30s",
		"12",
		"no events yet",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}

	// Every known strategy gets a row even without data.
	for _, s := range types.AllStrategies {
		if !strings.Contains(view, string(s)) {
			t.Errorf("View missing strategy row %q", s)
		}
	}
}

func TestLayoutReservesFeedSpace(t *testing.T) {
	m := resize(t, testModel(t, nil, nil), 100, 40)
	if m.feed.Height < 3 {
		t.Errorf("Expected at least 3 feed lines at height 40, got %d", m.feed.Height)
	}
	if m.feed.Width != 100 {
		t.Errorf("Expected feed width 100, got %d", m.feed.Width)
	}

	// A tiny terminal still keeps the minimum feed height.
	m = resize(t, m, 100, 8)
	if m.feed.Height != 3 {
		t.Errorf("Expected minimum feed height 3, got %d", m.feed.Height)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// KEY HANDLING
// ═══════════════════════════════════════════════════════════════════════════════

func TestPauseToggle(t *testing.T) {
	m := resize(t, testModel(t, nil, nil), 100, 40)

	m, _ = press(t, m, 'p')
	if !m.paused {
		t.Fatal("Expected paused after pressing p")
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("Expected PAUSED badge while paused")
	}

	m, _ = press(t, m, 'p')
	if m.paused {
		t.Fatal("Expected unpaused after pressing p again")
	}
	if strings.Contains(m.View(), "PAUSED") {
		t.Error("Expected no PAUSED badge after resuming")
	}
}

func TestQuitKey(t *testing.T) {
	m := resize(t, testModel(t, nil, nil), 100, 40)

	_, cmd := press(t, m, 'q')
	if cmd == nil {
		t.Fatal("Expected a command from q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Expected QuitMsg, got %T", cmd())
	}
}

func TestClearEmptiesFeed(t *testing.T) {
	events := bus.NewBusWithConfig(100, 16)
	t.Cleanup(func() { events.Close() })

	m := resize(t, testModel(t, events, nil), 100, 40)

	events.Publish(bus.NewRecognitionEvent("r1", "book_flight", "hybrid", 0.8))
	waitFor(t, time.Second, func() bool {
		return len(m.collector.GetRecentEvents(10)) == 1
	})

	m.refreshFeed()
	if !strings.Contains(m.View(), "book_flight") {
		t.Fatal("Expected the published event in the feed")
	}

	m, _ = press(t, m, 'c')
	view := m.View()
	if strings.Contains(view, "book_flight") {
		t.Error("Expected feed cleared after pressing c")
	}
	if !strings.Contains(view, "no events yet") {
		t.Error("Expected empty-feed placeholder after clearing")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// TICK REFRESH
// ═══════════════════════════════════════════════════════════════════════════════

func TestTickSkipsRefreshWhilePaused(t *testing.T) {
	events := bus.NewBusWithConfig(100, 16)
	t.Cleanup(func() { events.Close() })

	m := resize(t, testModel(t, events, nil), 100, 40)
	m, _ = press(t, m, 'p')

	events.Publish(bus.NewRecognitionEvent("r1", "greeting", "model", 0.9))
	waitFor(t, time.Second, func() bool {
		return len(m.collector.GetRecentEvents(10)) == 1
	})

	updated, cmd := m.Update(tickMsg(time.Now()))
	m = updated.(Model)
	if cmd == nil {
		t.Error("Expected tick to reschedule even while paused")
	}
	if strings.Contains(m.View(), "greeting") {
		t.Error("Expected frozen feed to omit events that arrived while paused")
	}

	// Resuming refreshes immediately.
	m, _ = press(t, m, 'p')
	if !strings.Contains(m.View(), "greeting") {
		t.Error("Expected the buffered event after resuming")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// EVENT FORMATTING
// ═══════════════════════════════════════════════════════════════════════════════

func TestFormatEvent(t *testing.T) {
	m := testModel(t, nil, nil)

	noIntent := bus.NewRecognitionEvent("r2", "", "rule", 0.0)

	tests := []struct {
		name  string
		event bus.Event
		want  []string
	}{
		{
			name:  "recognition",
			event: bus.NewRecognitionEvent("r1", "book_flight", "hybrid", 0.83),
			want:  []string{"recognition.completed", "book_flight @ 0.83 via hybrid"},
		},
		{
			name:  "recognition without intent",
			event: noIntent,
			want:  []string{"(none)"},
		},
		{
			name:  "fallback",
			event: bus.NewRecognitionFallbackEvent("r1", "model call failed: boom"),
			want:  []string{"recognition.fallback", "model call failed: boom"},
		},
		{
			name:  "decision",
			event: bus.NewDecisionEvent("d1", "circuit_breaker", "timeout", 0.785, 0.63),
			want:  []string{"decision.made", "circuit_breaker for timeout (score 0.785, conf 0.63)"},
		},
		{
			name:  "outcome success",
			event: bus.NewOutcomeEvent("cache_fallback", "rate_limit", true, 250*time.Millisecond),
			want:  []string{"outcome.recorded", "cache_fallback", "ok", "250ms"},
		},
		{
			name:  "outcome failure",
			event: bus.NewOutcomeEvent("immediate", "network", false, 1200*time.Millisecond),
			want:  []string{"immediate", "fail", "1200ms"},
		},
		{
			name:  "model error",
			event: bus.NewModelErrorEvent("r3", "intent-v1", "connection refused"),
			want:  []string{"model.error", "intent-v1: connection refused"},
		},
		{
			name:  "config reload",
			event: bus.NewConfigReloadedEvent("/etc/arbiter/arbiter.yaml"),
			want:  []string{"config reloaded: /etc/arbiter/arbiter.yaml"},
		},
		{
			name:  "cache invalidate without scope",
			event: bus.NewCacheInvalidateEvent(""),
			want:  []string{"cache invalidated: all"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := m.formatEvent(tt.event)
			for _, want := range tt.want {
				if !strings.Contains(line, want) {
					t.Errorf("formatEvent(%s) = %q, missing %q", tt.name, line, want)
				}
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// THEMES AND KEYS
// ═══════════════════════════════════════════════════════════════════════════════

func TestThemeRegistry(t *testing.T) {
	names := ThemeNames()
	if len(names) < 4 {
		t.Fatalf("Expected at least 4 themes, got %v", names)
	}
	for _, name := range names {
		if GetTheme(name).Name == "" {
			t.Errorf("Theme %q has no display name", name)
		}
	}

	if got := GetTheme("no-such-theme").Name; got != ThemeDefault.Name {
		t.Errorf("Expected fallback to default theme, got %q", got)
	}
}

func TestKeyMapHelp(t *testing.T) {
	var _ help.KeyMap = DefaultKeyMap()

	keys := DefaultKeyMap()
	if len(keys.ShortHelp()) == 0 {
		t.Error("Expected short help bindings")
	}
	if len(keys.FullHelp()) != 3 {
		t.Errorf("Expected 3 full-help columns, got %d", len(keys.FullHelp()))
	}
}
