package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"recipescraper/pkg/config"
	"recipescraper/pkg/ui"
)

const defaultConfigPath = ".recipescraper.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage recipescraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (THERMOMIX_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as '.recipescraper.yaml'
unless a different path is given with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

The password is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration and check it for invalid values, missing
credentials and an unusable output directory.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# recipescraper configuration file
#
# Environment variables override this file:
#   THERMOMIX_USERNAME, THERMOMIX_PASSWORD, THERMOMIX_LOCALE
#   THERMOMIX_MODE, THERMOMIX_RECIPE_IDS, THERMOMIX_OUTPUT

# Cookidoo account
cookidoo:
  # Prefer 'recipescraper auth login' over a password in this file
  username: ""
  password: ""

  # Domain suffix of the Cookidoo site, e.g. de, fr or co.uk
  locale: "de"

# What to fetch and where to put it
run:
  # skip, update, redownload or continue
  mode: "skip"

  # Only fetch these ids (empty fetches everything)
  recipe_ids: []

  # One <id>.json file per recipe plus the state file
  output_dir: "./recipes"

  # Save the state after this many recipes
  save_interval: 10

  debug: false

# Delays, timeouts and retries
timing:
  page_load_timeout: 3s
  request_timeout: 30s

  # Pause between two recipe fetches
  download_delay: 200ms

  # Pause before retrying a failed recipe
  retry_delay: 2s

  # Retries per recipe after the first attempt
  max_retries: 2

  # Recipe search requests allowed per minute
  search_requests_per_minute: 600

# Headless Chrome
browser:
  headless: true

  # Leave empty to find Chrome on the PATH
  chrome_path: ""
  user_agent: ""

# Logging
logging:
  # debug, info, warn or error
  level: "info"

  # Also write JSON logs to this file
  file: ""

  no_color: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		return exitWith(exitFailure, fmt.Errorf("configuration file already exists: %s (remove it first to start over)", configPath))
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return exitWith(exitFailure, fmt.Errorf("failed to create config directory: %w", err))
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return exitWith(exitFailure, fmt.Errorf("failed to create configuration file: %w", err))
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set your locale and run 'recipescraper auth login'")
	fmt.Println("2. Run 'recipescraper config validate' to check the configuration")
	fmt.Println("3. Start downloading with 'recipescraper scrape'")
	return nil
}

// maskedConfig returns a copy of cfg that is safe to print
func maskedConfig(cfg *config.Config) config.Config {
	display := *cfg
	if display.Cookidoo.Password != "" {
		display.Cookidoo.Password = "********"
	}
	return display
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return exitWith(exitFailure, err)
	}

	display := maskedConfig(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		return exitWith(exitFailure, fmt.Errorf("failed to format configuration: %w", err))
	}

	fmt.Print(string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Println()
	ui.PrintInfo("Configuration file", source)
	return nil
}

// configProblems lists what would stop a scrape with cfg
func configProblems(cfg *config.Config) (problems, warnings []string) {
	if err := cfg.RequireCredentials(); err != nil {
		warnings = append(warnings, err.Error())
	}

	if err := os.MkdirAll(cfg.Run.OutputDir, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}

	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if cfg.Browser.ChromePath != "" {
		if _, err := os.Stat(cfg.Browser.ChromePath); err != nil {
			problems = append(problems, fmt.Sprintf("chrome not found at %s", cfg.Browser.ChromePath))
		}
	}

	return problems, warnings
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return exitWith(exitFailure, err)
	}

	problems, warnings := configProblems(cfg)
	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}
	if len(problems) > 0 {
		for _, p := range problems {
			ui.PrintError("Problem", p)
		}
		return exitWith(exitFailure, errors.New("configuration is not usable"))
	}

	ui.PrintSuccess("Configuration is valid")
	return nil
}
