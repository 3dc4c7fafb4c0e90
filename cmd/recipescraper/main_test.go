package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipescraper/pkg/config"
	"recipescraper/pkg/scraper"
	"recipescraper/pkg/ui"
)

func init() {
	ui.SetColor(false)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "plain error", err: errors.New("boom"), want: exitFailure},
		{name: "interrupted", err: exitWith(exitInterrupted, nil), want: exitInterrupted},
		{name: "wrapped failure", err: exitWith(exitFailure, errors.New("login rejected")), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestScrapeResult(t *testing.T) {
	tests := []struct {
		name    string
		summary scraper.Summary
		err     error
		want    int
	}{
		{
			name:    "clean run",
			summary: scraper.Summary{Planned: 2, Fetched: 2},
			want:    exitOK,
		},
		{
			name:    "failed recipes",
			summary: scraper.Summary{Planned: 2, Fetched: 1, Failed: 1},
			want:    exitFailure,
		},
		{
			name:    "interrupted",
			summary: scraper.Summary{Planned: 5, Fetched: 1, Interrupted: true},
			err:     context.Canceled,
			want:    exitInterrupted,
		},
		{
			name: "cancelled before planning",
			err:  context.Canceled,
			want: exitInterrupted,
		},
		{
			name: "run error",
			err:  errors.New("failed to list recipes"),
			want: exitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(scrapeResult(tt.summary, tt.err)))
		})
	}
}

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addScrapeFlags(cmd)
	cmd.Flags().String("log-level", "info", "")
	cmd.Flags().Bool("debug", false, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestChangedFlagsOnlyIncludesSetFlags(t *testing.T) {
	flags := changedFlags(newFlagCommand(t))
	assert.Empty(t, flags)
}

func TestChangedFlags(t *testing.T) {
	cmd := newFlagCommand(t,
		"--mode", "redownload",
		"-r", "r1,r2",
		"-r", "r3",
		"--headless=false",
		"--max-retries", "0",
		"--locale", "de",
		"--debug",
	)

	flags := changedFlags(cmd)
	assert.Equal(t, "redownload", flags["mode"])
	assert.Equal(t, []string{"r1", "r2", "r3"}, flags["recipe-ids"])
	assert.Equal(t, false, flags["headless"])
	assert.Equal(t, 0, flags["max-retries"])
	assert.Equal(t, "de", flags["locale"])
	assert.Equal(t, true, flags["debug"])
	assert.NotContains(t, flags, "output")

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.MergeCommandLineFlags(flags))
	assert.Equal(t, config.ModeRedownload, cfg.Run.Mode)
	assert.Equal(t, []string{"r1", "r2", "r3"}, cfg.Run.RecipeIDs)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 0, cfg.Timing.MaxRetries)
}

func TestBrowserOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browser.Headless = false
	cfg.Browser.ChromePath = "/opt/chrome"
	cfg.Timing.RequestTimeout = 10 * time.Second
	cfg.Timing.SearchPerMinute = 120

	opts := browserOptions(cfg)
	assert.False(t, opts.Headless)
	assert.Equal(t, "/opt/chrome", opts.ChromePath)
	assert.Equal(t, 10*time.Second, opts.RequestTimeout)
	assert.Equal(t, cfg.Timing.PageLoadTimeout, opts.PageLoadTimeout)
	assert.Equal(t, 120, opts.SearchPerMinute)
}

func TestExampleConfigLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0600))

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "de", cfg.Cookidoo.Locale)
	assert.Equal(t, config.ModeSkip, cfg.Run.Mode)
	assert.Equal(t, 200*time.Millisecond, cfg.Timing.DownloadDelay)
	assert.Equal(t, 2*time.Second, cfg.Timing.RetryDelay)
	assert.Equal(t, 600, cfg.Timing.SearchPerMinute)
	assert.True(t, cfg.Browser.Headless)
}

func TestMaskedConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cookidoo.Username = "cook@example.com"
	cfg.Cookidoo.Password = "secret"

	display := maskedConfig(cfg)
	assert.Equal(t, "********", display.Cookidoo.Password)
	assert.Equal(t, "cook@example.com", display.Cookidoo.Username)
	assert.Equal(t, "secret", cfg.Cookidoo.Password)
}

func TestConfigProblems(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Run.OutputDir = filepath.Join(dir, "recipes")
	problems, warnings := configProblems(cfg)
	assert.Empty(t, problems)
	assert.NotEmpty(t, warnings, "missing credentials are reported")
	assert.DirExists(t, cfg.Run.OutputDir)

	cfg.Cookidoo.Username = "cook@example.com"
	cfg.Cookidoo.Password = "secret"
	cfg.Cookidoo.Locale = "de"
	cfg.Browser.ChromePath = filepath.Join(dir, "missing-chrome")
	problems, warnings = configProblems(cfg)
	assert.Empty(t, warnings)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "chrome not found")
}
