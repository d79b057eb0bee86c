package domain

import "time"

// HealthCheckResult is the outcome of one poll of one endpoint.
type HealthCheckResult struct {
	Endpoint    string    `json:"endpoint"`
	Attempt     int       `json:"attempt"`
	StatusCode  int       `json:"status_code,omitempty"`
	Healthy     bool      `json:"healthy"`
	Reason      string    `json:"reason,omitempty"`
	Error       string    `json:"error,omitempty"`
	BodyExcerpt string    `json:"body_excerpt,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// HealthStatus is the resolved result of a verification.
// Only the final round is retained.
type HealthStatus struct {
	Healthy     bool                `json:"healthy"`
	Rounds      int                 `json:"rounds"`
	LastRound   []HealthCheckResult `json:"last_round"`
	Diagnostics string              `json:"diagnostics,omitempty"`
}

// Failures returns the unhealthy results of the last round.
func (s *HealthStatus) Failures() []HealthCheckResult {
	var failed []HealthCheckResult
	for _, r := range s.LastRound {
		if !r.Healthy {
			failed = append(failed, r)
		}
	}
	return failed
}
