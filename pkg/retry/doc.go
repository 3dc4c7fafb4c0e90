// Package retry runs an operation a bounded number of times with a backoff
// between attempts.
//
// Recipe page loads use a ConstantBackoff of the configured retry delay;
// search requests use an ExponentialBackoff with jitter. Errors from
// recipescraper/pkg/errors are retried according to their type, and
// context cancellation is never retried.
//
//	err := retry.Do(func(attempt int) error {
//		return fetch(id, attempt)
//	}, &retry.Config{
//		MaxAttempts: cfg.Timing.MaxRetries + 1,
//		Backoff:     &retry.ConstantBackoff{Delay: cfg.Timing.RetryDelay},
//		Context:     ctx,
//		Logger:      log,
//	})
//
// When every attempt fails the returned error is an *ExhaustedError that
// unwraps to the last failure.
package retry
