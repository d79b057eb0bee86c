package deploy

import (
	"errors"
	"fmt"

	"github.com/mrz1836/shipyard/internal/constants"
)

// PhaseError is the structured failure of one orchestrator phase.
type PhaseError struct {
	Phase       constants.Phase
	Cause       error
	Diagnostics string
}

// Error implements the error interface.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Cause)
}

// Unwrap returns the cause so sentinels match with errors.Is.
func (e *PhaseError) Unwrap() error {
	return e.Cause
}

// AsPhaseError extracts a PhaseError from err.
func AsPhaseError(err error) (*PhaseError, bool) {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
