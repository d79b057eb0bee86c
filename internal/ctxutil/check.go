// Package ctxutil provides context utility functions.
package ctxutil

import (
	"context"
	"time"
)

// Canceled checks if the context has been canceled or exceeded its deadline.
// Returns the context error if done (Canceled or DeadlineExceeded), nil otherwise.
// Used at function entry points before doing remote or network work.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}

// Sleep blocks for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when the context ends the wait early.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SleepFunc matches Sleep so components can take a fake in tests.
type SleepFunc func(ctx context.Context, d time.Duration) error
