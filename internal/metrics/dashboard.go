package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard provides formatted metrics for TUI display.
type Dashboard struct {
	collector *Collector
	styles    DashboardStyles
	width     int
}

// DashboardStyles defines the styling for the dashboard.
type DashboardStyles struct {
	Border    lipgloss.Style
	Header    lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
}

// NewDashboard creates a dashboard renderer.
func NewDashboard(collector *Collector) *Dashboard {
	return &Dashboard{
		collector: collector,
		width:     80,
		styles:    defaultDashboardStyles(),
	}
}

// defaultDashboardStyles returns the default dashboard styling.
func defaultDashboardStyles() DashboardStyles {
	return DashboardStyles{
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		Value: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Highlight: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
	}
}

// SetWidth sets the dashboard width.
func (d *Dashboard) SetWidth(w int) {
	d.width = w
}

// Render returns the formatted metrics string for TUI.
func (d *Dashboard) Render() string {
	stats := d.collector.GetSessionStats()

	var content strings.Builder

	header := d.styles.Header.Render("SESSION")
	content.WriteString(header)
	content.WriteString("\n")

	// Row 1: recognition volume, confidence, fallback pressure
	row1 := fmt.Sprintf("%s %s │ %s %s │ %s %s",
		d.styles.Label.Render("Recognized:"),
		d.styles.Value.Render(fmt.Sprintf("%d intents", stats.Recognitions)),
		d.styles.Label.Render("Confidence:"),
		d.styles.Highlight.Render(fmt.Sprintf("%.2f avg", stats.AvgConfidence())),
		d.styles.Label.Render("Fallbacks:"),
		d.formatFallbackRate(stats.FallbackRate()*100),
	)
	content.WriteString(row1)
	content.WriteString("\n")

	// Row 2: decisions, outcome quality, outcome latency
	row2 := fmt.Sprintf("%s %s │ %s %s │ %s %s",
		d.styles.Label.Render("Decisions:"),
		d.styles.Value.Render(fmt.Sprintf("%d", stats.Decisions)),
		d.styles.Label.Render("Outcomes:"),
		d.formatSuccessRate(stats.SuccessRate()*100),
		d.styles.Label.Render("Latency:"),
		d.styles.Value.Render(fmt.Sprintf("%.2fs avg", stats.AvgOutcomeLatency())),
	)
	content.WriteString(row2)
	content.WriteString("\n")

	// Row 3: model errors, last event, event activity
	lastEvent := stats.LastEvent
	if lastEvent == "" {
		lastEvent = "none"
	}
	if len(lastEvent) > 20 {
		lastEvent = lastEvent[:17] + "..."
	}

	timeSinceLast := ""
	if !stats.LastEventTime.IsZero() {
		elapsed := time.Since(stats.LastEventTime)
		if elapsed < time.Second {
			timeSinceLast = "now"
		} else if elapsed < time.Minute {
			timeSinceLast = fmt.Sprintf("%.0fs", elapsed.Seconds())
		} else {
			timeSinceLast = fmt.Sprintf("%.0fm", elapsed.Minutes())
		}
	}

	row3 := fmt.Sprintf("%s %s │ %s %s │ %s",
		d.styles.Label.Render("Model errors:"),
		d.formatErrorCount(stats.ModelErrors),
		d.styles.Label.Render("Last:"),
		d.styles.Value.Render(fmt.Sprintf("%s (%s)", lastEvent, timeSinceLast)),
		d.renderEventActivity(),
	)
	content.WriteString(row3)

	return d.styles.Border.Width(d.width - 4).Render(content.String())
}

// RenderCompact returns a single-line summary.
func (d *Dashboard) RenderCompact() string {
	stats := d.collector.GetSessionStats()

	return fmt.Sprintf("[Session] %d recognized │ %.0f%% fallback │ %d decisions │ %.0f%% outcome success │ %s",
		stats.Recognitions,
		stats.FallbackRate()*100,
		stats.Decisions,
		stats.SuccessRate()*100,
		d.renderEventActivity(),
	)
}

// formatSuccessRate formats the outcome success rate with color.
func (d *Dashboard) formatSuccessRate(rate float64) string {
	formatted := fmt.Sprintf("%.0f%%", rate)
	if rate >= 90 {
		return d.styles.Success.Render(formatted)
	} else if rate >= 70 {
		return d.styles.Highlight.Render(formatted)
	}
	return d.styles.Error.Render(formatted)
}

// formatFallbackRate colors the fallback share: occasional fallbacks are
// normal, a majority-fallback session means the model path is down.
func (d *Dashboard) formatFallbackRate(rate float64) string {
	formatted := fmt.Sprintf("%.0f%%", rate)
	if rate <= 20 {
		return d.styles.Success.Render(formatted)
	} else if rate <= 50 {
		return d.styles.Highlight.Render(formatted)
	}
	return d.styles.Error.Render(formatted)
}

// formatErrorCount colors the model error count.
func (d *Dashboard) formatErrorCount(count int) string {
	formatted := fmt.Sprintf("%d", count)
	if count == 0 {
		return d.styles.Success.Render(formatted)
	}
	return d.styles.Error.Render(formatted)
}

// renderEventActivity renders a visual indicator of recent event activity.
func (d *Dashboard) renderEventActivity() string {
	events := d.collector.GetRecentEvents(5)

	activity := make([]string, 5)
	for i := 0; i < 5; i++ {
		if i < len(events) {
			activity[i] = "●"
		} else {
			activity[i] = "○"
		}
	}

	return strings.Join(activity, "")
}
