package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"recipescraper/pkg/auth"
	"recipescraper/pkg/config"
	"recipescraper/pkg/cookidoo"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/logger"
	"recipescraper/pkg/scraper"
	"recipescraper/pkg/ui"
	"recipescraper/pkg/ui/tui"
)

var (
	// Scrape flags
	username   string
	password   string
	locale     string
	mode       string
	recipeIDs  []string
	outputDir  string
	headless   bool
	maxRetries int
	useTUI     bool
	verbose    bool
	notify     bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download recipes from Cookidoo",
	Long: `Log in to Cookidoo, list the recipes of the account and store each one
as <output>/<recipe-id>.json.

Credentials are taken from the flags, the environment (THERMOMIX_USERNAME,
THERMOMIX_PASSWORD, THERMOMIX_LOCALE), a .env file, the config file or the
accounts stored with 'recipescraper auth login', in that order.

Press Ctrl+C to stop. The state is saved and the next run with
--mode continue picks up where this one stopped.`,
	Example: `  # Fetch everything that is new
  recipescraper scrape --locale de

  # Resume an interrupted run
  recipescraper scrape --mode continue

  # Refresh two recipes
  recipescraper scrape --mode redownload -r r59322 -r r12345

  # Full-screen progress view
  recipescraper scrape --tui`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func addScrapeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&username, "username", "u", "", "Cookidoo username (email)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Cookidoo password")
	cmd.Flags().StringVarP(&locale, "locale", "l", "", "Cookidoo domain suffix, e.g. de, fr or co.uk")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "run mode: skip, update, redownload or continue")
	cmd.Flags().StringSliceVarP(&recipeIDs, "recipe-id", "r", nil, "only fetch these recipe ids (repeatable or comma separated)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default ./recipes)")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser without a window")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 2, "retries per recipe after the first attempt")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show the full-screen progress view")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print one line per recipe instead of a progress bar")
	cmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

func init() {
	addScrapeFlags(scrapeCmd)
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return exitWith(exitFailure, err)
	}

	// Console logs would tear the full-screen view
	if useTUI && cfg.Logging.File == "" && !cfg.Run.Debug {
		cfg.Logging.Level = "error"
	}

	log, err := initLogging(cfg)
	if err != nil {
		return exitWith(exitFailure, err)
	}
	log.WithField("version", version).Debug("recipescraper starting")

	if err := resolveCredentials(cfg, log); err != nil {
		return exitWith(exitFailure, err)
	}
	if err := cfg.RequireCredentials(); err != nil {
		auth.ShowQuickGuide(os.Stderr)
		return exitWith(exitFailure, errs.Config(err.Error()))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := cookidoo.NewBrowserDriver(browserOptions(cfg), log)
	if err != nil {
		return exitWith(exitFailure, err)
	}

	s, err := scraper.New(cfg, scraper.Dependencies{Driver: driver, Logger: log})
	if err != nil {
		driver.Close()
		return exitWith(exitFailure, fmt.Errorf("failed to initialize scraper: %w", err))
	}
	defer s.Close()

	var summary scraper.Summary
	if useTUI {
		summary, err = runWithTUI(ctx, stop, s)
	} else {
		if !verbose {
			ui.PrintLogo()
		}
		s.SetReporter(ui.NewProgressDisplay(os.Stdout, verbose))
		summary, err = s.Run(ctx)
	}

	if summary.Planned > 0 || summary.Discovered > 0 {
		fmt.Print(ui.RenderSummary(summary))
	}

	if notify {
		if nerr := ui.NewNotifier().NotifyRunFinished(summary); nerr != nil {
			log.WithError(nerr).Debug("Desktop notification failed")
		}
	}

	return scrapeResult(summary, err)
}

// runWithTUI runs the scraper in the background while the full-screen view
// owns the terminal. The view closes when the run returns.
func runWithTUI(ctx context.Context, cancel context.CancelFunc, s *scraper.Scraper) (scraper.Summary, error) {
	view := tui.NewTUI(cancel)
	s.SetReporter(view)

	type result struct {
		summary scraper.Summary
		err     error
	}
	done := make(chan result, 1)

	go func() {
		summary, err := s.Run(ctx)
		done <- result{summary: summary, err: err}
		view.Stop()
	}()

	if err := view.Start(); err != nil {
		cancel()
		r := <-done
		if r.err == nil {
			r.err = fmt.Errorf("failed to run terminal view: %w", err)
		}
		return r.summary, r.err
	}

	r := <-done
	return r.summary, r.err
}

// scrapeResult maps the outcome of a run to the command error
func scrapeResult(summary scraper.Summary, err error) error {
	switch {
	case summary.Interrupted || errors.Is(err, context.Canceled):
		return exitWith(exitInterrupted, nil)
	case err != nil:
		return exitWith(exitFailure, err)
	case summary.Failed > 0:
		return exitWith(exitFailure, fmt.Errorf("%d recipes failed, run again to retry them", summary.Failed))
	}
	return nil
}

// resolveCredentials fills missing credentials from the stored accounts
func resolveCredentials(cfg *config.Config, log logger.Logger) error {
	if cfg.Cookidoo.Username != "" && cfg.Cookidoo.Password != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("Credential store unavailable")
		return nil
	}

	account, err := manager.Resolve(cfg.Cookidoo.Username, cfg.Cookidoo.Password, cfg.Cookidoo.Locale)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load stored credentials: %w", err)
	}

	cfg.Cookidoo.Username = account.Username
	cfg.Cookidoo.Password = account.Password
	if cfg.Cookidoo.Locale == "" {
		cfg.Cookidoo.Locale = account.Locale
	}
	log.WithField("username", account.Username).Debug("Using stored account")
	return nil
}

// browserOptions maps the configuration onto the browser driver
func browserOptions(cfg *config.Config) cookidoo.BrowserOptions {
	return cookidoo.BrowserOptions{
		Headless:        cfg.Browser.Headless,
		ChromePath:      cfg.Browser.ChromePath,
		UserAgent:       cfg.Browser.UserAgent,
		PageLoadTimeout: cfg.Timing.PageLoadTimeout,
		RequestTimeout:  cfg.Timing.RequestTimeout,
		SearchDelay:     cfg.Timing.DownloadDelay,
		SearchPerMinute: cfg.Timing.SearchPerMinute,
	}
}
