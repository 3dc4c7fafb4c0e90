package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"recipescraper/pkg/recipe"
	"recipescraper/pkg/scraper"
)

const (
	progressBarWidth = 20
	titleWidth       = 40
)

// ProgressDisplay renders run progress on a terminal. It implements
// scraper.Reporter.
//
// On a terminal a single status line is redrawn in place; otherwise every
// event is written on its own line so the output stays readable in logs.
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	live    bool
	verbose bool
	now     func() time.Time

	total     int
	processed int
	fetched   int
	failed    int
	current   recipe.ID
	startTime time.Time
}

var _ scraper.Reporter = (*ProgressDisplay)(nil)

// NewProgressDisplay creates a progress display writing to out. verbose
// prints a line per recipe even on a terminal.
func NewProgressDisplay(out io.Writer, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:     out,
		live:    ShouldColorize(out),
		verbose: verbose,
		now:     time.Now,
	}
}

// RunStarted resets the counters for a run of total recipes
func (p *ProgressDisplay) RunStarted(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.processed, p.fetched, p.failed = 0, 0, 0
	p.startTime = p.now()

	if total == 0 {
		fmt.Fprintf(p.out, "%s Nothing to fetch\n", Green("✓"))
		return
	}
	fmt.Fprintf(p.out, "%s Fetching %d recipes\n", Magenta("→"), total)
}

// FetchStarted marks the start of a recipe fetch
func (p *ProgressDisplay) FetchStarted(id recipe.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = id
	if p.live && !p.verbose {
		p.printProgress()
	}
}

// FetchRetrying reports a failed attempt that will be retried
func (p *ProgressDisplay) FetchRetrying(id recipe.ID, attempt int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live && !p.verbose {
		return
	}
	fmt.Fprintf(p.out, "%s %s attempt %d failed, retrying: %v\n", Yellow("↻"), id, attempt, err)
}

// FetchCompleted marks a recipe as fetched
func (p *ProgressDisplay) FetchCompleted(id recipe.ID, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	p.fetched++
	p.current = ""

	if p.live && !p.verbose {
		p.printProgress()
		return
	}
	fmt.Fprintf(p.out, "%s %s %s %s\n", Green("✓"), p.counter(), id, Dim(truncate(title, titleWidth)))
}

// FetchFailed marks a recipe as failed after its retries
func (p *ProgressDisplay) FetchFailed(id recipe.ID, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	p.failed++
	p.current = ""

	if p.live && !p.verbose {
		// Failures always get their own line above the status line
		p.clearLine()
		fmt.Fprintf(p.out, "%s %s - %v\n", Red("✗"), id, err)
		p.printProgress()
		return
	}
	fmt.Fprintf(p.out, "%s %s %s - %v\n", Red("✗"), p.counter(), id, err)
}

// RunFinished prints the closing line of a run
func (p *ProgressDisplay) RunFinished(summary scraper.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live && !p.verbose && p.total > 0 {
		fmt.Fprintln(p.out)
	}

	switch {
	case summary.Interrupted:
		fmt.Fprintf(p.out, "%s Interrupted after %d of %d recipes, run again with --mode continue\n",
			Yellow("⚠"), p.processed, summary.Planned)
	case summary.Failed > 0:
		fmt.Fprintf(p.out, "%s Finished with %d failed recipes in %s\n",
			Yellow("⚠"), summary.Failed, FormatDuration(summary.Duration))
	default:
		fmt.Fprintf(p.out, "%s Finished in %s\n", Green("✓"), FormatDuration(summary.Duration))
	}
}

func (p *ProgressDisplay) counter() string {
	width := len(fmt.Sprint(p.total))
	return Dim(fmt.Sprintf("[%*d/%d]", width, p.processed, p.total))
}

func (p *ProgressDisplay) clearLine() {
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 100))
}

// printProgress redraws the status line
func (p *ProgressDisplay) printProgress() {
	bar := ProgressBar(p.processed, p.total, progressBarWidth)

	line := fmt.Sprintf("[%s] %d/%d • %.1f/min • %s",
		bar,
		p.processed,
		p.total,
		p.rate(),
		p.eta(),
	)
	if p.current != "" {
		line += fmt.Sprintf(" • %s", Cyan(string(p.current)))
	}
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d failed", p.failed)))
	}

	p.clearLine()
	fmt.Fprint(p.out, line)
}

// rate returns processed recipes per minute
func (p *ProgressDisplay) rate() float64 {
	elapsed := p.now().Sub(p.startTime).Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.processed) / elapsed
}

// eta estimates time remaining
func (p *ProgressDisplay) eta() string {
	if p.processed == 0 {
		return "calculating..."
	}
	elapsed := p.now().Sub(p.startTime)
	perRecipe := elapsed / time.Duration(p.processed)
	return FormatDuration(perRecipe * time.Duration(p.total-p.processed))
}

// ProgressBar renders done/total as a bar of the given width
func ProgressBar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
