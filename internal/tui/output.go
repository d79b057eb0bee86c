package tui

import (
	"io"

	"github.com/mrz1836/shipyard/internal/domain"
)

// Output provides methods for structured output to a terminal.
type Output interface {
	// Success prints a success message.
	Success(msg string)
	// Error prints an error message with its suggested action, if any.
	Error(err error)
	// Warning prints a warning message.
	Warning(msg string)
	// Info prints an informational message.
	Info(msg string)
	// Table prints rows under headers.
	Table(headers []string, rows [][]string)
	// Attempts prints the outcome of each deployment attempt.
	Attempts(attempts []*domain.DeploymentAttempt)
	// JSON outputs a value as JSON.
	JSON(v any) error
}

// Output format names.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewOutput creates the appropriate output based on format.
func NewOutput(w io.Writer, format string) Output {
	if format == FormatJSON {
		return NewJSONOutput(w)
	}
	return NewTTYOutput(w)
}
