package constants

// Phase represents a state in the deployment state machine.
// Phase values use snake_case for JSON serialization compatibility.
type Phase string

// Phase constants define the states a deployment attempt moves through:
//
//	Init → Syncing → Configuring → Restarting → Verifying → Success | Failed
//
// Publishing runs after Verifying succeeds and never changes the terminal state.
const (
	// PhaseInit validates reachability and service unit presence.
	PhaseInit Phase = "init"

	// PhaseSyncing resets the application checkout to the requested revision.
	PhaseSyncing Phase = "syncing"

	// PhaseConfiguring installs dependencies and writes the environment file.
	PhaseConfiguring Phase = "configuring"

	// PhaseRestarting restarts the managed service and waits for it to settle.
	PhaseRestarting Phase = "restarting"

	// PhaseVerifying polls the health endpoints.
	PhaseVerifying Phase = "verifying"

	// PhasePublishing persists the artifact to the shared repository (best effort).
	PhasePublishing Phase = "publishing"

	// PhaseSuccess is terminal: every phase passed.
	PhaseSuccess Phase = "success"

	// PhaseFailed is terminal: a fatal phase failure or exhausted verification.
	PhaseFailed Phase = "failed"
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal reports whether no further phase follows p.
func (p Phase) IsTerminal() bool {
	return p == PhaseSuccess || p == PhaseFailed
}

// Outcome is the overall result of a deployment attempt.
type Outcome string

// Outcome constants.
const (
	// OutcomePending indicates the attempt is still running.
	OutcomePending Outcome = "pending"

	// OutcomeSuccess indicates every phase passed, including verification.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailed indicates a fatal failure or exhausted verification.
	OutcomeFailed Outcome = "failed"
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	return string(o)
}

// StepStatus represents the result of a single phase.
type StepStatus string

// Step status constants.
const (
	// StepCompleted indicates the phase finished successfully.
	StepCompleted StepStatus = "completed"

	// StepFailed indicates the phase failed.
	StepFailed StepStatus = "failed"

	// StepSkipped indicates the phase was not run.
	StepSkipped StepStatus = "skipped"

	// StepWarning indicates a best-effort phase failed without affecting the outcome.
	StepWarning StepStatus = "warning"
)

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	return string(s)
}
