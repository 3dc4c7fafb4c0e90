package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"recipescraper/pkg/recipe"
	"recipescraper/pkg/scraper"
)

// Message types for the TUI

// RunStartedMsg is sent once the fetch set is planned
type RunStartedMsg struct {
	Total int
}

// FetchStartedMsg is sent when a recipe fetch starts
type FetchStartedMsg struct {
	ID recipe.ID
}

// FetchRetryingMsg is sent when an attempt failed and will be retried
type FetchRetryingMsg struct {
	ID      recipe.ID
	Attempt int
	Err     error
}

// FetchCompletedMsg is sent when a recipe has been stored
type FetchCompletedMsg struct {
	ID    recipe.ID
	Title string
}

// FetchFailedMsg is sent when a recipe failed after its retries
type FetchFailedMsg struct {
	ID  recipe.ID
	Err error
}

// RunFinishedMsg is sent when the run returns
type RunFinishedMsg struct {
	Summary scraper.Summary
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to refresh elapsed time and ETA
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = progressWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.Done() {
			return m, nil
		}
		return m, tickCmd()

	case RunStartedMsg:
		m.runStarted(msg.Total)
		return m, nil

	case FetchStartedMsg:
		m.fetchStarted(msg.ID)
		return m, nil

	case FetchRetryingMsg:
		m.fetchRetrying(msg.ID, msg.Attempt, msg.Err)
		return m, nil

	case FetchCompletedMsg:
		m.fetchCompleted(msg.ID, msg.Title)
		return m, nil

	case FetchFailedMsg:
		m.fetchFailed(msg.ID, msg.Err)
		return m, nil

	case RunFinishedMsg:
		m.runFinished(msg.Summary)
		return m, nil

	case LogMsg:
		m.addLog(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.Done() {
			return m, tea.Quit
		}
		// First press stops the run; the view stays until it has saved
		if !m.stopping {
			m.stopping = true
			m.addLog(LevelWarn, "Stopping after the current recipe...")
			if m.onStop != nil {
				m.onStop()
			}
		}
		return m, nil

	case "enter", "esc":
		if m.Done() {
			return m, tea.Quit
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func progressWidth(windowWidth int) int {
	w := windowWidth - 30
	if w < 10 {
		return 10
	}
	if w > 80 {
		return 80
	}
	return w
}
