// Package retry implements bounded retries shared by the deploy and publish paths.
package retry

import (
	"context"
	"time"

	"github.com/mrz1836/shipyard/internal/ctxutil"
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the wait. Zero means no cap.
	MaxDelay time.Duration
	// Multiplier grows the delay after each wait. Values below 1 mean a fixed delay.
	Multiplier float64
}

// Fixed returns a Config with a constant delay between attempts.
func Fixed(attempts int, delay time.Duration) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		MaxDelay:     delay,
		Multiplier:   1.0,
	}
}

// Operation defines an operation that can be retried.
type Operation[R any] interface {
	// Attempt performs a single attempt. err may be non-nil even on success.
	Attempt(ctx context.Context, attempt int) (result R, success bool, err error)

	// ShouldRetry reports whether err is worth another attempt.
	ShouldRetry(err error) bool

	// OnRetryWait is called before waiting for the next attempt.
	OnRetryWait(attempt int, delay time.Duration)
}

// Execute runs op until it succeeds, ShouldRetry declines, or attempts run out.
// It returns the last result, the number of attempts made and the final error.
// sleep may be nil, in which case ctxutil.Sleep is used.
func Execute[R any](
	ctx context.Context,
	config Config,
	op Operation[R],
	sleep ctxutil.SleepFunc,
) (result R, attempts int, finalErr error) {
	if sleep == nil {
		sleep = ctxutil.Sleep
	}
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		attempts = attempt

		res, success, err := op.Attempt(ctx, attempt)
		if success {
			return res, attempts, nil
		}

		result = res
		finalErr = err

		if !op.ShouldRetry(err) {
			break
		}

		if attempt < config.MaxAttempts {
			op.OnRetryWait(attempt, delay)

			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return result, attempts, sleepErr
			}

			if config.Multiplier > 1 {
				delay = time.Duration(float64(delay) * config.Multiplier)
				if config.MaxDelay > 0 && delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			}
		}
	}

	return result, attempts, finalErr
}

// SimpleOperation adapts plain functions to Operation.
type SimpleOperation[R any] struct {
	AttemptFunc     func(ctx context.Context, attempt int) (R, bool, error)
	ShouldRetryFunc func(err error) bool
	OnRetryWaitFunc func(attempt int, delay time.Duration)
}

// Attempt implements Operation.
func (s *SimpleOperation[R]) Attempt(ctx context.Context, attempt int) (R, bool, error) {
	return s.AttemptFunc(ctx, attempt)
}

// ShouldRetry implements Operation. A nil ShouldRetryFunc never retries.
func (s *SimpleOperation[R]) ShouldRetry(err error) bool {
	if s.ShouldRetryFunc == nil {
		return false
	}
	return s.ShouldRetryFunc(err)
}

// OnRetryWait implements Operation.
func (s *SimpleOperation[R]) OnRetryWait(attempt int, delay time.Duration) {
	if s.OnRetryWaitFunc != nil {
		s.OnRetryWaitFunc(attempt, delay)
	}
}

// Compile-time interface check.
var _ Operation[any] = (*SimpleOperation[any])(nil)
