package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/shipyard/internal/constants"
)

func TestHasColorSupport(t *testing.T) {
	t.Run("NO_COLOR set", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		assert.False(t, HasColorSupport())
	})

	t.Run("dumb terminal", func(t *testing.T) {
		t.Setenv("TERM", "dumb")
		assert.False(t, HasColorSupport())
	})
}

func TestOutcomeIconAndColor(t *testing.T) {
	assert.Equal(t, "✓", OutcomeIcon(constants.OutcomeSuccess))
	assert.Equal(t, "✗", OutcomeIcon(constants.OutcomeFailed))
	assert.Equal(t, "○", OutcomeIcon(constants.OutcomePending))

	assert.Equal(t, ColorSuccess, OutcomeColor(constants.OutcomeSuccess))
	assert.Equal(t, ColorError, OutcomeColor(constants.OutcomeFailed))
	assert.Equal(t, ColorMuted, OutcomeColor(constants.OutcomePending))
}

func TestStepIcon(t *testing.T) {
	assert.Equal(t, "✓", StepIcon(constants.StepCompleted))
	assert.Equal(t, "✗", StepIcon(constants.StepFailed))
	assert.Equal(t, "⚠", StepIcon(constants.StepWarning))
	assert.Equal(t, "–", StepIcon(constants.StepSkipped))
}

func TestPhaseLabel(t *testing.T) {
	assert.Equal(t, "Restarting", PhaseLabel(constants.PhaseRestarting))
	assert.Equal(t, "Init", PhaseLabel(constants.PhaseInit))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "120ms", FormatDuration(120*time.Millisecond+300*time.Microsecond))
	assert.Equal(t, "42.3s", FormatDuration(42*time.Second+260*time.Millisecond))
}
