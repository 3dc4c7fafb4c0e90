package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StateFileName is the name of the scrape state file inside the output directory
const StateFileName = ".scraper_state.json"

// RunMode selects which recipes are fetched in a run
type RunMode string

const (
	// ModeSkip skips recipes already fetched
	ModeSkip RunMode = "skip"
	// ModeUpdate re-fetches every recipe to pick up upstream edits
	ModeUpdate RunMode = "update"
	// ModeRedownload re-fetches every recipe and overwrites artifacts
	ModeRedownload RunMode = "redownload"
	// ModeContinue resumes a partial run from the saved state
	ModeContinue RunMode = "continue"
)

// RunModes lists the accepted run modes in display order
var RunModes = []RunMode{ModeSkip, ModeUpdate, ModeRedownload, ModeContinue}

// ParseRunMode parses a run mode case-insensitively
func ParseRunMode(s string) (RunMode, error) {
	mode := RunMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range RunModes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown run mode %q (expected skip, update, redownload or continue)", s)
}

func (m RunMode) String() string {
	return string(m)
}

// Config holds all configuration options for the recipe scraper.
// It is built once by Load and treated as read-only afterwards.
type Config struct {
	// Platform credentials and locale
	Cookidoo CookidooConfig `yaml:"cookidoo" json:"cookidoo"`

	// What to fetch and where to put it
	Run RunConfig `yaml:"run" json:"run"`

	// Delays, timeouts and retry policy
	Timing TimingConfig `yaml:"timing" json:"timing"`

	// Headless browser settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CookidooConfig holds platform credentials and locale
type CookidooConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Locale   string `yaml:"locale" json:"locale"`
}

// RunConfig holds per-invocation run settings
type RunConfig struct {
	Mode         RunMode  `yaml:"mode" json:"mode"`
	RecipeIDs    []string `yaml:"recipe_ids" json:"recipe_ids"`
	OutputDir    string   `yaml:"output_dir" json:"output_dir"`
	Debug        bool     `yaml:"debug" json:"debug"`
	SaveInterval int      `yaml:"save_interval" json:"save_interval"`
}

// TimingConfig holds delays, timeouts and retry settings
type TimingConfig struct {
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" json:"page_load_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
	DownloadDelay   time.Duration `yaml:"download_delay" json:"download_delay"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay"`
	MaxRetries      int           `yaml:"max_retries" json:"max_retries"`
	SearchPerMinute int           `yaml:"search_requests_per_minute" json:"search_requests_per_minute"`
}

// BrowserConfig holds headless browser settings
type BrowserConfig struct {
	Headless   bool   `yaml:"headless" json:"headless"`
	ChromePath string `yaml:"chrome_path" json:"chrome_path"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Mode:         ModeSkip,
			OutputDir:    "./recipes",
			SaveInterval: 10,
		},
		Timing: TimingConfig{
			PageLoadTimeout: 3 * time.Second,
			RequestTimeout:  30 * time.Second,
			DownloadDelay:   200 * time.Millisecond,
			RetryDelay:      2 * time.Second,
			MaxRetries:      2,
			SearchPerMinute: 600,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// StatePath returns the location of the scrape state file
func (c *Config) StatePath() string {
	return filepath.Join(c.Run.OutputDir, StateFileName)
}

// firstEnv returns the first non-empty environment variable among names
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// parseBool accepts the usual truthy spellings
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SplitList splits a comma separated list, dropping empty items
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadFromEnv loads configuration from environment variables.
// Legacy COOKIDOO_* names are accepted after the THERMOMIX_* ones.
func (c *Config) LoadFromEnv() error {
	if v := firstEnv("THERMOMIX_USERNAME", "COOKIDOO_EMAIL", "COOKIDOO_USERNAME"); v != "" {
		c.Cookidoo.Username = v
	}
	if v := firstEnv("THERMOMIX_PASSWORD", "COOKIDOO_PASSWORD"); v != "" {
		c.Cookidoo.Password = v
	}
	if v := firstEnv("THERMOMIX_LOCALE", "COOKIDOO_LOCALE"); v != "" {
		c.Cookidoo.Locale = v
	}

	if v := firstEnv("THERMOMIX_MODE", "RUN_MODE"); v != "" {
		mode, err := ParseRunMode(v)
		if err != nil {
			return err
		}
		c.Run.Mode = mode
	}
	if v := firstEnv("THERMOMIX_RECIPE_IDS", "RECIPE_IDS"); v != "" {
		c.Run.RecipeIDs = SplitList(v)
	}
	if v := firstEnv("THERMOMIX_OUTPUT", "OUTPUT_DIR"); v != "" {
		c.Run.OutputDir = v
	}
	if v := firstEnv("THERMOMIX_DEBUG"); v != "" {
		c.Run.Debug = parseBool(v)
	}

	if v := firstEnv("THERMOMIX_HEADLESS"); v != "" {
		c.Browser.Headless = parseBool(v)
	}
	if v := firstEnv("GOOGLE_CHROME_PATH"); v != "" {
		c.Browser.ChromePath = v
	}

	if v := firstEnv("THERMOMIX_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid THERMOMIX_MAX_RETRIES %q: %w", v, err)
		}
		c.Timing.MaxRetries = n
	}

	if v := firstEnv("THERMOMIX_LOG_LEVEL", "LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".recipescraper.yaml",
		".recipescraper.yml",
		filepath.Join(home, ".config", "recipescraper", "config.yaml"),
		filepath.Join(home, ".config", "recipescraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// FindConfigFile exposes the default search used when no --config is given
func FindConfigFile() string {
	return findConfigFile()
}

// Validate checks that the configuration is internally consistent.
// Credentials are checked separately by RequireCredentials.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseRunMode(string(c.Run.Mode)); err != nil {
		errs = append(errs, err)
	}
	if c.Run.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Run.SaveInterval <= 0 {
		errs = append(errs, errors.New("save interval must be positive"))
	}

	if c.Timing.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Timing.MaxRetries > 10 {
		errs = append(errs, errors.New("max retries should not exceed 10"))
	}
	if c.Timing.RetryDelay < 0 || c.Timing.DownloadDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if c.Timing.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Timing.SearchPerMinute <= 0 {
		errs = append(errs, errors.New("search requests per minute must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RequireCredentials checks the settings needed before any network activity
func (c *Config) RequireCredentials() error {
	var errs []error
	if c.Cookidoo.Locale == "" {
		errs = append(errs, errors.New("locale is required (THERMOMIX_LOCALE or --locale)"))
	}
	if c.Cookidoo.Username == "" || c.Cookidoo.Password == "" {
		errs = append(errs, errors.New("credentials are required (THERMOMIX_USERNAME/THERMOMIX_PASSWORD, --username/--password or 'recipescraper auth login')"))
	}
	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) error {
	if v, ok := flags["username"].(string); ok && v != "" {
		c.Cookidoo.Username = v
	}
	if v, ok := flags["password"].(string); ok && v != "" {
		c.Cookidoo.Password = v
	}
	if v, ok := flags["locale"].(string); ok && v != "" {
		c.Cookidoo.Locale = v
	}
	if v, ok := flags["mode"].(string); ok && v != "" {
		mode, err := ParseRunMode(v)
		if err != nil {
			return err
		}
		c.Run.Mode = mode
	}
	if v, ok := flags["recipe-ids"].([]string); ok && len(v) > 0 {
		var ids []string
		for _, item := range v {
			ids = append(ids, SplitList(item)...)
		}
		c.Run.RecipeIDs = ids
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Run.OutputDir = v
	}
	if v, ok := flags["debug"].(bool); ok && v {
		c.Run.Debug = true
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["max-retries"].(int); ok && v >= 0 {
		c.Timing.MaxRetries = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".recipescraper.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.MergeCommandLineFlags(flags); err != nil {
		return nil, fmt.Errorf("invalid command line flags: %w", err)
	}

	// Debug wins over any configured level
	if config.Run.Debug {
		config.Logging.Level = "debug"
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
