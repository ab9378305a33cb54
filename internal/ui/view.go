package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// VIEW RENDERING
// ═══════════════════════════════════════════════════════════════════════════════

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "starting dashboard..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.session.Render(),
		m.renderStrategies(),
		m.renderFeedTitle(),
		m.feed.View(),
		m.renderFooter(),
	)
}

// ═══════════════════════════════════════════════════════════════════════════════
// HEADER
// ═══════════════════════════════════════════════════════════════════════════════

// renderHeader draws the title bar: logo and provider on the left,
// session uptime on the right.
func (m Model) renderHeader() string {
	logo := m.styles.Logo.Render("ARBITER")
	context := m.styles.HeaderContext.Render("provider: " + m.provider)

	uptime := m.collector.GetSessionStats().Uptime().Round(time.Second)
	status := m.styles.HeaderStatus.Render("up " + uptime.String())

	left := lipgloss.JoinHorizontal(lipgloss.Center, logo, context)

	// Manual gap keeps the status glued to the right edge. Header
	// padding eats two columns.
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}

	return m.styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + status)
}

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGIES TABLE
// ═══════════════════════════════════════════════════════════════════════════════

// renderStrategies draws the per-strategy performance table in canonical
// strategy order, with any unknown snapshot keys appended alphabetically.
func (m Model) renderStrategies() string {
	snap := map[types.Strategy]types.Aggregates{}
	if m.perf != nil {
		snap = m.perf.Snapshot()
	}

	order := append([]types.Strategy{}, types.AllStrategies...)
	var extra []string
	for s := range snap {
		if !s.Valid() {
			extra = append(extra, string(s))
		}
	}
	sort.Strings(extra)
	for _, s := range extra {
		order = append(order, types.Strategy(s))
	}

	rows := make([]string, 0, len(order)+1)
	rows = append(rows, m.styles.TableHeader.Render(
		fmt.Sprintf("  %-22s %9s %9s %7s  %s", "STRATEGY", "SUCCESS", "AVG RT", "USED", "RECENT")))
	for _, s := range order {
		rows = append(rows, m.strategyRow(s, snap[s]))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.SectionTitle.Render("STRATEGIES"),
		strings.Join(rows, "\n"),
	)
}

// strategyRow renders one table row. Columns are padded before styling
// so the ANSI escapes never break the alignment.
func (m Model) strategyRow(s types.Strategy, agg types.Aggregates) string {
	name := m.styles.TableRow.Render(fmt.Sprintf("  %-22s", string(s)))

	var rate string
	if agg.UsageCount == 0 && len(agg.Recent) == 0 {
		rate = m.styles.Empty.Render(fmt.Sprintf("%9s", "-"))
	} else {
		style := m.styles.Bad
		switch {
		case agg.SuccessRate >= 0.8:
			style = m.styles.Good
		case agg.SuccessRate >= 0.5:
			style = m.styles.Warn
		}
		rate = style.Render(fmt.Sprintf("%8.1f%%", agg.SuccessRate*100))
	}

	rt := m.styles.TableRow.Render(fmt.Sprintf("%8.2fs", agg.AvgResponseTime))
	used := m.styles.TableRow.Render(fmt.Sprintf("%7d", agg.UsageCount))

	return name + rate + rt + used + "  " + m.recentDots(agg.Recent)
}

// recentDots renders up to the last ten outcomes as colored dots,
// oldest on the left.
func (m Model) recentDots(recent []types.Outcome) string {
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	var b strings.Builder
	for _, o := range recent {
		if o.Success {
			b.WriteString(m.styles.DotSuccess.Render("●"))
		} else {
			b.WriteString(m.styles.DotFailure.Render("●"))
		}
	}
	return b.String()
}

// ═══════════════════════════════════════════════════════════════════════════════
// EVENT FEED
// ═══════════════════════════════════════════════════════════════════════════════

// renderFeedTitle heads the event feed, with a badge while paused.
func (m Model) renderFeedTitle() string {
	title := m.styles.SectionTitle.Render("EVENTS")
	if !m.paused {
		return title
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		title, " ", m.styles.PausedBadge.Render("PAUSED"))
}

// formatEvent renders one bus event as a feed line: timestamp, padded
// type tag, then a type-specific summary.
func (m Model) formatEvent(ev bus.Event) string {
	ts := m.styles.EventTime.Render(ev.Timestamp.Local().Format("15:04:05"))
	tag := m.styles.EventType.Render(fmt.Sprintf("%-22s", string(ev.Type)))

	var detail string
	switch ev.Type {
	case bus.EventRecognitionCompleted:
		intent := ev.Intent
		if intent == "" {
			intent = "(none)"
		}
		detail = fmt.Sprintf("%s @ %.2f via %s", intent, ev.Confidence, ev.Source)

	case bus.EventRecognitionFallback:
		detail = m.styles.Warn.Render(ev.Details)

	case bus.EventDecisionMade:
		detail = fmt.Sprintf("%s for %s (score %.3f, conf %.2f)",
			ev.Strategy, ev.ErrorClass, ev.Score, ev.Confidence)

	case bus.EventOutcomeRecorded:
		mark := m.styles.DotSuccess.Render("ok")
		if !ev.Success {
			mark = m.styles.DotFailure.Render("fail")
		}
		detail = fmt.Sprintf("%s %s in %dms", ev.Strategy, mark, ev.DurationMs)

	case bus.EventModelError:
		detail = m.styles.EventError.Render(fmt.Sprintf("%s: %s", ev.Model, ev.Error))

	case bus.EventConfigReloaded:
		detail = "config reloaded: " + ev.Details

	case bus.EventCacheInvalidate:
		scope := ev.Details
		if scope == "" {
			scope = "all"
		}
		detail = "cache invalidated: " + scope

	default:
		detail = ev.Details
	}

	return fmt.Sprintf(" %s  %s %s", ts, tag, detail)
}

// ═══════════════════════════════════════════════════════════════════════════════
// FOOTER
// ═══════════════════════════════════════════════════════════════════════════════

// renderFooter draws the help bar.
func (m Model) renderFooter() string {
	return m.styles.Footer.Width(m.width).Render(m.help.View(m.keys))
}
