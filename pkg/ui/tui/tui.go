package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"recipescraper/pkg/recipe"
	"recipescraper/pkg/scraper"
)

// TUI is the full-screen run view. It implements scraper.Reporter so the
// orchestrator can drive it from its own goroutine.
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ scraper.Reporter = (*TUI)(nil)

// NewTUI creates a new TUI. onStop is called when the user asks to stop the run.
func NewTUI(onStop func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onStop)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Start runs the TUI until the user quits. It blocks.
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// RunStarted implements scraper.Reporter
func (t *TUI) RunStarted(total int) {
	t.Send(RunStartedMsg{Total: total})
}

// FetchStarted implements scraper.Reporter
func (t *TUI) FetchStarted(id recipe.ID) {
	t.Send(FetchStartedMsg{ID: id})
}

// FetchRetrying implements scraper.Reporter
func (t *TUI) FetchRetrying(id recipe.ID, attempt int, err error) {
	t.Send(FetchRetryingMsg{ID: id, Attempt: attempt, Err: err})
}

// FetchCompleted implements scraper.Reporter
func (t *TUI) FetchCompleted(id recipe.ID, title string) {
	t.Send(FetchCompletedMsg{ID: id, Title: title})
}

// FetchFailed implements scraper.Reporter
func (t *TUI) FetchFailed(id recipe.ID, err error) {
	t.Send(FetchFailedMsg{ID: id, Err: err})
}

// RunFinished implements scraper.Reporter
func (t *TUI) RunFinished(summary scraper.Summary) {
	t.Send(RunFinishedMsg{Summary: summary})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log(LevelInfo, format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log(LevelError, format, args...)
}
