package ui

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"recipescraper/pkg/auth"
	"recipescraper/pkg/recipe"
	"recipescraper/pkg/scraper"
	"recipescraper/pkg/state"
)

// maxListed caps the ids printed below a table
const maxListed = 20

// newWriter returns a rounded table that keeps header and footer casing
func newWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	tw.Style().Title.Format = text.FormatDefault
	return tw
}

// setTitle sets the table title and widens the table so it fits on one line
func setTitle(tw table.Writer, title string) {
	tw.SetTitle("%s", title)
	tw.Style().Size.WidthMin = text.StringWidthWithoutEscSequences(title) + 4
}

func newTable(title string) table.Writer {
	tw := newWriter()
	setTitle(tw, title)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	return tw
}

// RenderSummary renders the counters of a finished run
func RenderSummary(s scraper.Summary) string {
	tw := newTable(fmt.Sprintf("Run %s (%s)", shortID(s.RunID), s.Mode))
	tw.AppendRows([]table.Row{
		{"Discovered", s.Discovered},
		{"Planned", s.Planned},
		{"Fetched", s.Fetched},
		{"Unchanged", s.Unchanged},
		{"Failed", s.Failed},
		{"Skipped", s.Skipped},
		{"Healed", s.Healed},
		{"Adopted", s.Adopted},
		{"Unknown", len(s.Unknown)},
	})
	if remaining := s.Remaining(); remaining > 0 {
		tw.AppendRow(table.Row{"Not processed", remaining})
	}
	tw.AppendFooter(table.Row{"Duration", FormatDuration(s.Duration)})

	var b strings.Builder
	b.WriteString(tw.Render())
	b.WriteString("\n")

	if len(s.FailedIDs) > 0 {
		ids := make([]string, len(s.FailedIDs))
		for i, id := range s.FailedIDs {
			ids[i] = string(id)
		}
		b.WriteString(listLine("Failed", ids))
	}
	if len(s.Unknown) > 0 {
		b.WriteString(listLine("Not in listing", s.Unknown))
	}
	return b.String()
}

// RenderState renders the per-status counts of a scrape state. With
// showFailed, failed entries and their last error are listed as well.
func RenderState(st *state.State, showFailed bool) string {
	counts := st.Counts()

	tw := newTable("Scrape state")
	tw.AppendHeader(table.Row{"Status", "Recipes"})
	total := 0
	for _, status := range []state.Status{state.StatusFetched, state.StatusPending, state.StatusFailed} {
		tw.AppendRow(table.Row{string(status), counts[status]})
		total += counts[status]
	}
	tw.AppendFooter(table.Row{"Total", total})
	if !st.UpdatedAt.IsZero() {
		tw.SetCaption("updated %s", st.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	var b strings.Builder
	b.WriteString(tw.Render())
	b.WriteString("\n")

	if showFailed {
		failed := st.IDs(state.StatusFailed)
		if len(failed) > 0 {
			b.WriteString(renderFailed(st, failed))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderAccounts renders stored accounts with their passwords masked
func RenderAccounts(accounts []*auth.Account) string {
	tw := newWriter()
	setTitle(tw, "Stored accounts")
	tw.AppendHeader(table.Row{"Username", "Password", "Locale", "Saved"})
	for _, a := range accounts {
		safe := auth.SanitizeAccount(a)
		saved := "-"
		if !safe.LastModified.IsZero() {
			saved = safe.LastModified.Local().Format("2006-01-02 15:04")
		}
		tw.AppendRow(table.Row{safe.Username, safe.Password, safe.Locale, saved})
	}
	return tw.Render() + "\n"
}

func renderFailed(st *state.State, ids []recipe.ID) string {
	tw := newWriter()
	tw.AppendHeader(table.Row{"Recipe", "Attempts", "Last error"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, WidthMax: 60},
	})
	for _, id := range ids {
		entry, _ := st.Get(id)
		tw.AppendRow(table.Row{string(id), entry.Attempts, entry.Error})
	}
	return tw.Render()
}

func listLine(label string, ids []string) string {
	shown := ids
	suffix := ""
	if len(shown) > maxListed {
		shown = shown[:maxListed]
		suffix = fmt.Sprintf(" (+%d more)", len(ids)-maxListed)
	}
	return fmt.Sprintf("%s: %s%s\n", label, strings.Join(shown, ", "), suffix)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
