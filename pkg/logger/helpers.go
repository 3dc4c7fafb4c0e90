package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs an outbound HTTP request against the search backend
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogFetch logs the outcome of one recipe fetch
func LogFetch(l Logger, recipeID string, attempts int, err error) {
	entry := l.WithFields(map[string]interface{}{
		"recipe_id": recipeID,
		"attempts":  attempts,
	})

	if err != nil {
		entry.WithError(err).Error("Recipe fetch failed")
		return
	}
	entry.Debug("Recipe fetched")
}

// LogRunProgress logs how far the run has got
func LogRunProgress(l Logger, done, total, failed int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}

	l.WithFields(map[string]interface{}{
		"done":       done,
		"total":      total,
		"failed":     failed,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Run progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
