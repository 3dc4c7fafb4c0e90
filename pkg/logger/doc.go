// Package logger provides a structured logging interface for the recipe scraper.
//
// It wraps zerolog with a small interface so components can be handed a
// Logger and tests can swap in a TestLogger or a no-op logger.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.WithField("recipe_id", "r123").Info("Recipe fetched")
//	log.WithError(err).Error("Login failed")
//
// Console output is colored only when stderr is a terminal. When a log file
// is configured every line is additionally appended to it as JSON.
package logger
