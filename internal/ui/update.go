package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ═══════════════════════════════════════════════════════════════════════════════
// UPDATE LOOP
// ═══════════════════════════════════════════════════════════════════════════════

// tickMsg drives the periodic refresh. Each tick re-reads the collector
// and the aggregates source, so the dashboard needs no push channel.
type tickMsg time.Time

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.refresh)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.session.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.layout()
		if !m.ready {
			m.ready = true
			m.refreshFeed()
			m.feed.GotoBottom()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if !m.paused {
				m.refreshFeed()
			}
			m.layout()
			return m, nil

		case key.Matches(msg, m.keys.Clear):
			m.clearedAt = time.Now()
			m.refreshFeed()
			return m, nil

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.layout()
			return m, nil

		case key.Matches(msg, m.keys.Top):
			m.feed.GotoTop()
			return m, nil

		case key.Matches(msg, m.keys.Bottom):
			m.feed.GotoBottom()
			return m, nil
		}

		// Arrow and page keys reach the viewport's own bindings.
		var cmd tea.Cmd
		m.feed, cmd = m.feed.Update(msg)
		return m, cmd

	case tickMsg:
		if m.ready && !m.paused {
			m.refreshFeed()
		}
		return m, tickCmd(m.refresh)
	}

	return m, nil
}

// layout sizes the feed viewport to whatever vertical space the fixed
// panels leave over. Panel heights depend on their rendered content, so
// we measure the real strings instead of hard-coding row counts.
func (m *Model) layout() {
	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.session.Render()) +
		lipgloss.Height(m.renderStrategies()) +
		lipgloss.Height(m.renderFeedTitle()) +
		lipgloss.Height(m.renderFooter())

	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	m.feed.Width = m.width
	m.feed.Height = h
}

// refreshFeed re-reads the recent events and rebuilds the viewport
// content. When the user was parked at the bottom we keep following the
// tail; a scrolled-up viewport stays put.
func (m *Model) refreshFeed() {
	atBottom := m.feed.AtBottom()

	events := m.collector.GetRecentEvents(feedCapacity)
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		if !ev.Timestamp.After(m.clearedAt) {
			continue
		}
		lines = append(lines, m.formatEvent(ev))
	}

	if len(lines) == 0 {
		m.feed.SetContent(m.styles.Empty.Render("no events yet"))
	} else {
		m.feed.SetContent(strings.Join(lines, "\n"))
	}

	if atBottom {
		m.feed.GotoBottom()
	}
}
