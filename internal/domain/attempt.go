package domain

import (
	"time"

	"github.com/mrz1836/shipyard/internal/constants"
)

// DeploymentAttempt records one run of the orchestrator against one target.
// It is created at INIT and mutated as each phase completes.
//
// Example JSON representation:
//
//	{
//	    "id": "9b2f...",
//	    "target": {"name": "prod", "host": "203.0.113.5", ...},
//	    "revision": "abc1234",
//	    "outcome": "success",
//	    "phase": "success",
//	    "steps": [{"phase": "init", "status": "completed", ...}]
//	}
type DeploymentAttempt struct {
	ID          string            `json:"id"`
	Target      DeploymentTarget  `json:"target"`
	Revision    string            `json:"revision"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at,omitzero"`
	Outcome     constants.Outcome `json:"outcome"`
	Phase       constants.Phase   `json:"phase"`
	Steps       []StepResult      `json:"steps"`
	Health      *HealthStatus     `json:"health,omitempty"`
	Publish     *PublishResult    `json:"publish,omitempty"`
	Error       string            `json:"error,omitempty"`
	Diagnostics string            `json:"diagnostics,omitempty"`
}

// StepResult is the outcome of a single phase.
type StepResult struct {
	Phase     constants.Phase      `json:"phase"`
	Status    constants.StepStatus `json:"status"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration"`
	Error     string               `json:"error,omitempty"`
	Output    string               `json:"output,omitempty"`
}

// AddStep appends a step result.
func (a *DeploymentAttempt) AddStep(step StepResult) {
	a.Steps = append(a.Steps, step)
}

// StepsPassed counts completed steps.
func (a *DeploymentAttempt) StepsPassed() int {
	n := 0
	for _, s := range a.Steps {
		if s.Status == constants.StepCompleted {
			n++
		}
	}
	return n
}

// Succeeded reports whether the attempt finished successfully.
func (a *DeploymentAttempt) Succeeded() bool {
	return a.Outcome == constants.OutcomeSuccess
}

// Duration returns the wall time of the attempt, or zero while it is running.
func (a *DeploymentAttempt) Duration() time.Duration {
	if a.CompletedAt.IsZero() {
		return 0
	}
	return a.CompletedAt.Sub(a.StartedAt)
}

// Summary is the condensed record emitted at the end of a run and sent to
// the notification webhook.
type Summary struct {
	ID          string            `json:"id"`
	Target      string            `json:"target"`
	Host        string            `json:"host"`
	Revision    string            `json:"revision"`
	Outcome     constants.Outcome `json:"outcome"`
	Phase       constants.Phase   `json:"phase"`
	StepsPassed int               `json:"steps_passed"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Published   bool              `json:"published"`
	Error       string            `json:"error,omitempty"`
	Diagnostics string            `json:"diagnostics,omitempty"`
}

// Summary builds the condensed record for a.
func (a *DeploymentAttempt) Summary() Summary {
	s := Summary{
		ID:          a.ID,
		Target:      a.Target.Label(),
		Host:        a.Target.Host,
		Revision:    a.Revision,
		Outcome:     a.Outcome,
		Phase:       a.Phase,
		StepsPassed: a.StepsPassed(),
		StartedAt:   a.StartedAt,
		CompletedAt: a.CompletedAt,
		Error:       a.Error,
		Diagnostics: a.Diagnostics,
	}
	if a.Publish != nil {
		s.Published = a.Publish.Published
	}
	return s
}
