package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Kitchen palette
	herbGreen   = lipgloss.Color("#7BC47F")
	paprika     = lipgloss.Color("#E4572E")
	saffron     = lipgloss.Color("#F3A712")
	cream       = lipgloss.Color("#F5EFE0")
	slate       = lipgloss.Color("#2B2D42")
	mutedGrey   = lipgloss.Color("#8D99AE")
	deepGrey    = lipgloss.Color("#4A4E69")
	brightWhite = lipgloss.Color("#FFFFFF")

	headerStyle = lipgloss.NewStyle().
			Foreground(herbGreen).
			Bold(true).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedGrey).
			Italic(true)

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(deepGrey).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(herbGreen).
			Foreground(slate).
			Bold(true).
			Padding(0, 1)

	// Stats styles
	statsLabelStyle = lipgloss.NewStyle().
			Foreground(mutedGrey).
			Width(12)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(cream).
			Bold(true)

	// Status styles
	successStyle = lipgloss.NewStyle().
			Foreground(herbGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(paprika).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(saffron).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedGrey)

	activeStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true)

	// Log styles
	logTimestampStyle = lipgloss.NewStyle().
				Foreground(deepGrey)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedGrey).
			Padding(0, 0, 0, 1)
)

// levelColor returns the color used for a log level
func levelColor(level string) lipgloss.Color {
	switch level {
	case LevelError:
		return paprika
	case LevelWarn:
		return saffron
	case LevelSuccess:
		return herbGreen
	default:
		return mutedGrey
	}
}
