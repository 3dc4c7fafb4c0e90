package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0, // No jitter for predictable testing
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := backoff.NextDelay(tt.attempt); got != tt.expected {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestExponentialBackoffJitterStaysInBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 2 * time.Second}
	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
	assert.Equal(t, 2*time.Second, backoff.NextDelay(1))
	assert.Equal(t, 2*time.Second, backoff.NextDelay(7))
}

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	var seen []int
	err := Do(func(attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errs.Fetch("r1", "page empty", nil)
		}
		return nil
	}, testConfig(3))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestDoExhausted(t *testing.T) {
	calls := 0
	cause := errors.New("timeout")
	err := Do(func(attempt int) error {
		calls++
		return cause
	}, testConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.True(t, errors.Is(err, cause))
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	authErr := errs.Auth("session expired", nil)
	err := Do(func(attempt int) error {
		calls++
		return authErr
	}, testConfig(5))

	assert.Equal(t, 1, calls)
	assert.Same(t, authErr, err)
}

func TestDoSingleAttemptWhenZero(t *testing.T) {
	calls := 0
	err := Do(func(attempt int) error {
		calls++
		return errors.New("nope")
	}, testConfig(0))

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig(5)
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}
	cfg.Context = ctx
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		cancel()
	}

	calls := 0
	err := Do(func(attempt int) error {
		calls++
		return errors.New("flaky")
	}, cfg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestDoOnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := testConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
		assert.Equal(t, time.Millisecond, delay)
	}

	_ = Do(func(int) error { return errors.New("x") }, cfg)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoWithResult(t *testing.T) {
	result, err := DoWithResult(func(attempt int) (string, error) {
		if attempt == 1 {
			return "", errs.New(errs.ErrorTypeNetwork, "reset")
		}
		return "ok", nil
	}, testConfig(2))

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errs.Config("bad")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeNotFound, "gone")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, "slow down")))
	assert.True(t, DefaultRetryIf(errors.New("unknown")))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
