package tui

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/shipyard/internal/constants"
)

// PhaseLabel returns the display name of a phase, e.g. "Restarting".
func PhaseLabel(phase constants.Phase) string {
	return cases.Title(language.English).String(phase.String())
}
