package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envNames = []string{
	"THERMOMIX_USERNAME", "COOKIDOO_EMAIL", "COOKIDOO_USERNAME",
	"THERMOMIX_PASSWORD", "COOKIDOO_PASSWORD",
	"THERMOMIX_LOCALE", "COOKIDOO_LOCALE",
	"THERMOMIX_MODE", "RUN_MODE",
	"THERMOMIX_RECIPE_IDS", "RECIPE_IDS",
	"THERMOMIX_OUTPUT", "OUTPUT_DIR",
	"THERMOMIX_DEBUG", "THERMOMIX_HEADLESS", "GOOGLE_CHROME_PATH",
	"THERMOMIX_MAX_RETRIES",
	"THERMOMIX_LOG_LEVEL", "LOG_LEVEL",
}

// clearEnv unsets every variable the loader reads for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Run.Mode != ModeSkip {
		t.Errorf("Expected default mode to be skip, got %s", config.Run.Mode)
	}

	if config.Run.OutputDir != "./recipes" {
		t.Errorf("Expected default output directory to be ./recipes, got %s", config.Run.OutputDir)
	}

	assert.Equal(t, 2, config.Timing.MaxRetries)
	assert.Equal(t, 2*time.Second, config.Timing.RetryDelay)
	assert.Equal(t, 200*time.Millisecond, config.Timing.DownloadDelay)
	assert.Equal(t, 10, config.Run.SaveInterval)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, "info", config.Logging.Level)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("THERMOMIX_USERNAME", "cook@example.com")
	t.Setenv("THERMOMIX_PASSWORD", "secret")
	t.Setenv("THERMOMIX_LOCALE", "de")
	t.Setenv("THERMOMIX_MODE", "UPDATE")
	t.Setenv("THERMOMIX_RECIPE_IDS", "r1, 2 ,,r3")
	t.Setenv("THERMOMIX_OUTPUT", "/tmp/recipes")
	t.Setenv("THERMOMIX_DEBUG", "yes")
	t.Setenv("THERMOMIX_HEADLESS", "false")
	t.Setenv("THERMOMIX_LOG_LEVEL", "WARN")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "cook@example.com", config.Cookidoo.Username)
	assert.Equal(t, "secret", config.Cookidoo.Password)
	assert.Equal(t, "de", config.Cookidoo.Locale)
	assert.Equal(t, ModeUpdate, config.Run.Mode)
	assert.Equal(t, []string{"r1", "2", "r3"}, config.Run.RecipeIDs)
	assert.Equal(t, "/tmp/recipes", config.Run.OutputDir)
	assert.True(t, config.Run.Debug)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestLoadFromEnvLegacyAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("COOKIDOO_EMAIL", "legacy@example.com")
	t.Setenv("COOKIDOO_PASSWORD", "old")
	t.Setenv("COOKIDOO_LOCALE", "fr")
	t.Setenv("RUN_MODE", "continue")
	t.Setenv("OUTPUT_DIR", "out")
	t.Setenv("LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "legacy@example.com", config.Cookidoo.Username)
	assert.Equal(t, "old", config.Cookidoo.Password)
	assert.Equal(t, "fr", config.Cookidoo.Locale)
	assert.Equal(t, ModeContinue, config.Run.Mode)
	assert.Equal(t, "out", config.Run.OutputDir)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvPrimaryWinsOverAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("THERMOMIX_USERNAME", "new@example.com")
	t.Setenv("COOKIDOO_EMAIL", "legacy@example.com")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())
	assert.Equal(t, "new@example.com", config.Cookidoo.Username)
}

func TestLoadFromEnvInvalidMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("THERMOMIX_MODE", "sometimes")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sometimes")
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `
cookidoo:
  username: file@example.com
  locale: it
run:
  mode: redownload
  output_dir: /data/recipes
  recipe_ids: [r1, r2]
timing:
  retry_delay: 5s
  download_delay: 1s
  max_retries: 4
logging:
  level: error
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, "file@example.com", config.Cookidoo.Username)
	assert.Equal(t, "it", config.Cookidoo.Locale)
	assert.Equal(t, ModeRedownload, config.Run.Mode)
	assert.Equal(t, "/data/recipes", config.Run.OutputDir)
	assert.Equal(t, []string{"r1", "r2"}, config.Run.RecipeIDs)
	assert.Equal(t, 5*time.Second, config.Timing.RetryDelay)
	assert.Equal(t, time.Second, config.Timing.DownloadDelay)
	assert.Equal(t, 4, config.Timing.MaxRetries)
	assert.Equal(t, "error", config.Logging.Level)

	// Untouched keys keep their defaults
	assert.Equal(t, 10, config.Run.SaveInterval)
	assert.True(t, config.Browser.Headless)
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad mode", func(c *Config) { c.Run.Mode = "sometimes" }, true},
		{"empty output", func(c *Config) { c.Run.OutputDir = "" }, true},
		{"negative retries", func(c *Config) { c.Timing.MaxRetries = -1 }, true},
		{"too many retries", func(c *Config) { c.Timing.MaxRetries = 11 }, true},
		{"negative delay", func(c *Config) { c.Timing.RetryDelay = -time.Second }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"zero save interval", func(c *Config) { c.Run.SaveInterval = 0 }, true},
		{"zero retries is fine", func(c *Config) { c.Timing.MaxRetries = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	config := DefaultConfig()
	err := config.RequireCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locale")
	assert.Contains(t, err.Error(), "credentials")

	config.Cookidoo = CookidooConfig{Username: "u", Password: "p", Locale: "de"}
	assert.NoError(t, config.RequireCredentials())
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"username":    "flag@example.com",
		"locale":      "de-CH",
		"mode":        "continue",
		"recipe-ids":  []string{"r1,r2", "r3"},
		"output":      "/flag/output",
		"headless":    false,
		"max-retries": 0,
		"log-level":   "DEBUG",
	}

	require.NoError(t, config.MergeCommandLineFlags(flags))

	assert.Equal(t, "flag@example.com", config.Cookidoo.Username)
	assert.Equal(t, "de-CH", config.Cookidoo.Locale)
	assert.Equal(t, ModeContinue, config.Run.Mode)
	assert.Equal(t, []string{"r1", "r2", "r3"}, config.Run.RecipeIDs)
	assert.Equal(t, "/flag/output", config.Run.OutputDir)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, 0, config.Timing.MaxRetries)
	assert.Equal(t, "debug", config.Logging.Level)

	assert.Error(t, config.MergeCommandLineFlags(map[string]interface{}{"mode": "bogus"}))
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("run:\n  output_dir: /from/file\n  mode: update\n"), 0644))

	t.Setenv("THERMOMIX_OUTPUT", "/from/env")

	config, err := Load(configPath, map[string]interface{}{"mode": "redownload"})
	require.NoError(t, err)

	// Env beats file, flags beat everything
	assert.Equal(t, "/from/env", config.Run.OutputDir)
	assert.Equal(t, ModeRedownload, config.Run.Mode)
}

func TestLoadDebugForcesDebugLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("THERMOMIX_DEBUG", "1")

	config, err := Load(filepath.Join(t.TempDir(), "missing-is-ok-only-when-empty.yaml"), nil)
	assert.Error(t, err, "an explicit config path must exist")
	assert.Nil(t, config)

	config, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	original := DefaultConfig()
	original.Cookidoo.Locale = "es"
	original.Timing.RetryDelay = 3 * time.Second
	require.NoError(t, original.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "es", loaded.Cookidoo.Locale)
	assert.Equal(t, 3*time.Second, loaded.Timing.RetryDelay)
}

func TestStatePath(t *testing.T) {
	config := DefaultConfig()
	config.Run.OutputDir = "/data"
	assert.Equal(t, filepath.Join("/data", ".scraper_state.json"), config.StatePath())
}
