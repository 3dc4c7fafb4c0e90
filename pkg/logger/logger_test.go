package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"recipescraper/pkg/config"
)

// bufferLogger returns a zerolog-backed Logger writing JSON into buf
func bufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).With().Timestamp().Logger()
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug", NoColor: true}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(&config.LoggingConfig{Level: "info", File: path, NoColor: true})
	require.NoError(t, err)

	logger.WithField("recipe_id", "r42").Info("Recipe fetched")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recipe_id":"r42"`)
	assert.Contains(t, string(data), `"app":"recipescraper"`)
	assert.Contains(t, string(data), `"message":"Recipe fetched"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	for _, msg := range []string{"debug message", "info message", "warn message", "error message"} {
		if !strings.Contains(output, msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf)

	logger.
		WithField("recipe_id", "r1").
		WithFields(map[string]interface{}{
			"attempt": 2,
			"mode":    "skip",
		}).
		Info("chained fields")

	output := buf.String()
	assert.Contains(t, output, "chained fields")
	assert.Contains(t, output, `"recipe_id":"r1"`)
	assert.Contains(t, output, `"attempt":2`)
	assert.Contains(t, output, `"mode":"skip"`)
}

func TestWithFieldDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf)

	_ = logger.WithField("child_only", true)
	logger.Info("parent")

	assert.NotContains(t, buf.String(), "child_only")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf)

	if logger.WithError(nil) != Logger(logger) {
		t.Error("WithError(nil) should return the same logger")
	}

	logger.WithError(errors.New("login rejected")).Error("error occurred")

	output := buf.String()
	assert.Contains(t, output, "error occurred")
	assert.Contains(t, output, "login rejected")
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf)

	logger.InfoWithFields("typed", map[string]interface{}{
		"string":   "test",
		"int64":    int64(456),
		"float":    3.5,
		"time":     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"cause":    errors.New("boom"),
		"custom":   struct{ Name string }{Name: "test"},
	})

	output := buf.String()
	assert.Contains(t, output, `"int64":456`)
	assert.Contains(t, output, `"strings":["a","b"]`)
	assert.Contains(t, output, `"cause":"boom"`)
	assert.Contains(t, output, `"Name":"test"`)
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogFetch(tl, "r1", 1, nil)
	LogFetch(tl, "r2", 3, errors.New("timeout"))
	LogRunProgress(tl, 5, 10, 1)
	LogRequest(tl, "POST", "https://example/1/indexes/x/query", 503, time.Second)
	LogComponentStart(tl, "orchestrator", map[string]interface{}{"mode": "skip"})

	errs := tl.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 2)
	assert.Equal(t, "Recipe fetch failed", errs[0].Message)
	assert.Equal(t, "r2", errs[0].Fields["recipe_id"])
	assert.EqualError(t, errs[0].Error, "timeout")
	assert.Equal(t, "HTTP request server error", errs[1].Message)

	progress := tl.GetMessagesByLevel("INFO")
	require.Len(t, progress, 2)
	assert.Equal(t, "50.0%", progress[0].Fields["percentage"])
	assert.Equal(t, "orchestrator", progress[1].Fields["component"])
}

func TestTestLoggerSharesRecorder(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("run_id", "abc").WithError(errors.New("x"))
	child.Warn("from child")
	tl.Info("from parent")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "abc", msgs[0].Fields["run_id"])
	assert.Error(t, msgs[0].Error)
	assert.Nil(t, msgs[1].Fields)
	assert.True(t, tl.HasMessage("from parent"))
	assert.True(t, tl.HasMessageContaining("child"))
	assert.False(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestNopLogger(t *testing.T) {
	nop := NewNopLogger()
	nop.WithField("k", "v").WithError(errors.New("x")).Info("ignored")
	assert.NotNil(t, nop.GetZerolog())
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "debug", NoColor: true}))
	assert.NotNil(t, GetLogger())

	// Convenience functions must not panic
	Debug("debug message")
	Info("info message")
	WithField("key", "value").Info("with field")
	WithError(errors.New("test")).Warn("with error")
}
