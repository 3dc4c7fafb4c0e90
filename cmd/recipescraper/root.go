package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"recipescraper/pkg/config"
	"recipescraper/pkg/logger"
	"recipescraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	noColor    bool
	debug      bool
)

// Process exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recipescraper",
	Short: "Download your Cookidoo recipes as JSON",
	Long: `recipescraper downloads the recipes of a Cookidoo account and stores each
one as a JSON file in the output directory.

Progress is kept in a state file next to the recipes, so an interrupted run
can be resumed and later runs only fetch what is new.

Run modes:
  skip        fetch recipes that have not been fetched yet (default)
  update      re-fetch everything, rewrite only changed recipes
  redownload  re-fetch and rewrite everything
  continue    resume an interrupted run`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
	},
	RunE: runScrape,
}

// exitError carries the process exit code of a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitWith wraps err so Execute exits with code. A nil err exits silently.
func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	return exitCode(rootCmd.Execute())
}

// exitCode maps a command error to an exit code, reporting it on stderr
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			ui.PrintError("Error", ee.err)
		}
		return ee.code
	}

	ui.PrintError("Error", err)
	return exitFailure
}

// loadConfig builds the configuration from the file, the environment and
// the flags the user actually set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		return nil, err
	}
	if cfg.Logging.NoColor {
		ui.SetColor(false)
	}
	return cfg, nil
}

// changedFlags returns the flags given on the command line, keyed the way
// config.MergeCommandLineFlags expects
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})

	for _, name := range []string{"username", "password", "locale", "mode", "output", "log-level", "log-file"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = f.Value.String()
		}
	}
	for _, name := range []string{"debug", "headless", "no-color"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if v, err := cmd.Flags().GetBool(name); err == nil {
				flags[name] = v
			}
		}
	}
	if f := cmd.Flags().Lookup("max-retries"); f != nil && f.Changed {
		if v, err := cmd.Flags().GetInt("max-retries"); err == nil {
			flags["max-retries"] = v
		}
	}
	if f := cmd.Flags().Lookup("recipe-id"); f != nil && f.Changed {
		if v, err := cmd.Flags().GetStringSlice("recipe-id"); err == nil {
			flags["recipe-ids"] = v
		}
	}

	return flags
}

// initLogging sets up the global logger and returns it
func initLogging(cfg *config.Config) (logger.Logger, error) {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.GetLogger(), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.recipescraper.yaml or ~/.config/recipescraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	addScrapeFlags(rootCmd)

	rootCmd.SetVersionTemplate(`recipescraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
