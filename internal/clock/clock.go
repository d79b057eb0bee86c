// Package clock provides an abstraction for time operations to improve testability.
// Deployment attempts, health results, and manifests take their timestamps from a
// Clock so tests can pin them.
package clock

import "time"

// Clock is an interface for time operations.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current UTC time from the system clock.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.At
}

// Ensure both clocks implement Clock.
var (
	_ Clock = RealClock{}
	_ Clock = FixedClock{}
)
