package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"recipescraper/pkg/recipe"
	"recipescraper/pkg/scraper"
)

// Log levels shown in the log panel
const (
	LevelInfo    = "INFO"
	LevelSuccess = "OK"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
)

// ItemState is the display state of one recipe
type ItemState int

const (
	ItemActive ItemState = iota
	ItemRetrying
	ItemFetched
	ItemFailed
)

// Item is one recipe shown in the recent list
type Item struct {
	ID      recipe.ID
	Title   string
	State   ItemState
	Attempt int
	Err     error
	Started time.Time
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the bubbletea model of a run. All fields are owned by the
// program goroutine; the scraper talks to it through messages only.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	total     int
	processed int
	fetched   int
	failed    int
	retries   int
	current   *Item
	recent    []Item
	maxRecent int
	startTime time.Time

	summary  *scraper.Summary
	stopping bool
	onStop   func()

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	now func() time.Time
}

// NewModel creates a new TUI model. onStop is called once when the user
// asks to stop a run that is still going.
func NewModel(onStop func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(herbGreen)

	p := progress.New(progress.WithGradient(string(saffron), string(herbGreen)))
	p.Width = 40

	return Model{
		spinner:        s,
		progress:       p,
		maxRecent:      8,
		maxLogMessages: 50,
		onStop:         onStop,
		now:            time.Now,
		startTime:      time.Now(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Done reports whether the run has finished
func (m Model) Done() bool {
	return m.summary != nil
}

// Summary returns the run summary once the run has finished
func (m Model) Summary() (scraper.Summary, bool) {
	if m.summary == nil {
		return scraper.Summary{}, false
	}
	return *m.summary, true
}

// Percent returns the share of processed recipes
func (m Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.processed) / float64(m.total)
}

func (m *Model) runStarted(total int) {
	m.total = total
	m.processed, m.fetched, m.failed, m.retries = 0, 0, 0, 0
	m.startTime = m.now()
	m.addLog(LevelInfo, pluralize(total, "recipe")+" to fetch")
}

func (m *Model) fetchStarted(id recipe.ID) {
	m.current = &Item{ID: id, State: ItemActive, Attempt: 1, Started: m.now()}
}

func (m *Model) fetchRetrying(id recipe.ID, attempt int, err error) {
	m.retries++
	if m.current != nil && m.current.ID == id {
		m.current.State = ItemRetrying
		m.current.Attempt = attempt + 1
		m.current.Err = err
	}
	m.addLog(LevelWarn, string(id)+": "+err.Error())
}

func (m *Model) fetchCompleted(id recipe.ID, title string) {
	m.processed++
	m.fetched++
	m.finishItem(Item{ID: id, Title: title, State: ItemFetched})
}

func (m *Model) fetchFailed(id recipe.ID, err error) {
	m.processed++
	m.failed++
	m.finishItem(Item{ID: id, State: ItemFailed, Err: err})
	m.addLog(LevelError, string(id)+" failed: "+err.Error())
}

func (m *Model) finishItem(item Item) {
	if m.current != nil && m.current.ID == item.ID {
		m.current = nil
	}
	m.recent = append(m.recent, item)
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[len(m.recent)-m.maxRecent:]
	}
}

func (m *Model) runFinished(summary scraper.Summary) {
	m.summary = &summary
	m.current = nil
	switch {
	case summary.Interrupted:
		m.addLog(LevelWarn, "Run interrupted")
	case summary.Failed > 0:
		m.addLog(LevelWarn, pluralize(summary.Failed, "recipe")+" failed")
	default:
		m.addLog(LevelSuccess, "Run complete")
	}
}

// addLog appends a message, keeping only the last maxLogMessages
func (m *Model) addLog(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// eta estimates the time left from the average time per processed recipe
func (m Model) eta() time.Duration {
	if m.processed == 0 || m.total <= m.processed {
		return 0
	}
	perRecipe := m.now().Sub(m.startTime) / time.Duration(m.processed)
	return perRecipe * time.Duration(m.total-m.processed)
}
