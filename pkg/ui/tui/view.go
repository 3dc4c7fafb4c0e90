package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderProgress(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderStatsPanel(), " ", m.renderRecentPanel()),
		m.renderLogsPanel(),
	}

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render(m.footer()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		headerStyle.Render("recipescraper"),
		subtitleStyle.Render("cookidoo recipe downloader"),
	)
}

// renderProgress renders the bar and the recipe being fetched
func (m Model) renderProgress() string {
	bar := m.progress.ViewAs(m.Percent())
	counter := statsValueStyle.Render(fmt.Sprintf(" %d/%d", m.processed, m.total))

	var status string
	switch {
	case m.summary != nil:
		status = successStyle.Render("✓ finished")
		if m.summary.Interrupted {
			status = warningStyle.Render("⏸ interrupted")
		}
	case m.current != nil:
		label := activeStyle.Render(string(m.current.ID))
		if m.current.State == ItemRetrying {
			label += warningStyle.Render(fmt.Sprintf(" attempt %d", m.current.Attempt))
		}
		status = m.spinner.View() + " " + label
	case m.stopping:
		status = warningStyle.Render("stopping...")
	default:
		status = m.spinner.View() + dimStyle.Render(" preparing")
	}

	return lipgloss.JoinVertical(lipgloss.Left, bar+counter, status)
}

func (m Model) panelWidth() int {
	w := (m.width - 3) / 2
	if w < 30 {
		return 30
	}
	return w
}

// renderStatsPanel renders the run counters
func (m Model) renderStatsPanel() string {
	elapsed := m.now().Sub(m.startTime)
	if m.summary != nil {
		elapsed = m.summary.Duration
	}

	rows := []string{
		statRow("Fetched", fmt.Sprint(m.fetched)),
		statRow("Failed", fmt.Sprint(m.failed)),
		statRow("Retries", fmt.Sprint(m.retries)),
		statRow("Elapsed", formatDuration(elapsed)),
		statRow("ETA", formatDuration(m.eta())),
	}
	if m.summary != nil {
		rows = append(rows,
			statRow("Unchanged", fmt.Sprint(m.summary.Unchanged)),
			statRow("Skipped", fmt.Sprint(m.summary.Skipped)),
		)
	}

	return panelStyle.Width(m.panelWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("RUN"), strings.Join(rows, "\n")),
	)
}

func statRow(label, value string) string {
	return statsLabelStyle.Render(label) + statsValueStyle.Render(value)
}

// renderRecentPanel renders the last finished recipes
func (m Model) renderRecentPanel() string {
	width := m.panelWidth()

	var lines []string
	for i := len(m.recent) - 1; i >= 0; i-- {
		item := m.recent[i]
		switch item.State {
		case ItemFetched:
			title := truncate(item.Title, width-len(item.ID)-8)
			lines = append(lines, successStyle.Render("✓ ")+string(item.ID)+" "+dimStyle.Render(title))
		case ItemFailed:
			lines = append(lines, errorStyle.Render("✗ ")+string(item.ID))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("Nothing fetched yet"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("RECENT"), strings.Join(lines, "\n")),
	)
}

// renderLogsPanel renders the last log messages that fit the window
func (m Model) renderLogsPanel() string {
	visible := m.height - 22
	if visible < 3 {
		visible = 3
	}
	start := len(m.logMessages) - visible
	if start < 0 {
		start = 0
	}

	maxLen := m.width - 24
	if maxLen < 20 {
		maxLen = 20
	}

	var logs []string
	for _, entry := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(entry.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(levelColor(entry.Level)).Bold(true).Render(fmt.Sprintf("%-5s", entry.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, truncate(entry.Message, maxLen)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimStyle.Render("No messages yet")
	}

	return panelStyle.Width(m.width - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("LOG"), content),
	)
}

func (m Model) footer() string {
	if m.summary != nil {
		return "Press q or enter to exit • ? help"
	}
	return "Press q to stop • ? help"
}

// renderHelp renders the help panel
func (m Model) renderHelp() string {
	help := strings.Join([]string{
		"q / ctrl+c   stop the run after the current recipe, quit when finished",
		"enter / esc  quit once the run has finished",
		"ctrl+l       clear the log panel",
		"?            toggle this help",
		"",
		successStyle.Render("✓") + " fetched   " + errorStyle.Render("✗") + " failed   " + warningStyle.Render("attempt n") + " retrying",
	}, "\n")

	return panelStyle.Width(m.width - 2).Render(help)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// truncate shortens plain text s to n visible cells
func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > n-3 {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
