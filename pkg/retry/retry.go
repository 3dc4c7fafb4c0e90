package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/logger"
)

// Operation performs one attempt; attempt counts from 1
type Operation func(attempt int) error

// OperationWithResult is an Operation that also produces a value
type OperationWithResult[T any] func(attempt int) (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total number of attempts including the first (minimum 1)
	MaxAttempts int
	// Backoff strategy to use between attempts
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before sleeping ahead of the next attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation of the waits between attempts
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// ExhaustedError is returned when every attempt failed
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

// DefaultRetryIf retries typed errors by their type and everything else
// except cancellation
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}

	return true
}

// Do runs op until it succeeds, returns a non-retryable error, or runs out
// of attempts. Waits between attempts honor cfg.Context.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(attempt)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": maxAttempts,
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(func(attempt int) error {
		var opErr error
		result, opErr = op(attempt)
		return opErr
	}, cfg)

	return result, err
}
