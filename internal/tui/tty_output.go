package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
)

// TTYOutput provides styled terminal output using Lip Gloss.
type TTYOutput struct {
	w      io.Writer
	styles *OutputStyles
}

// NewTTYOutput creates a TTYOutput. Respects NO_COLOR via CheckNoColor().
func NewTTYOutput(w io.Writer) *TTYOutput {
	CheckNoColor()

	return &TTYOutput{
		w:      w,
		styles: NewOutputStyles(),
	}
}

// Success outputs a success message with a ✓ icon.
func (o *TTYOutput) Success(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Success.Render("✓ "+msg))
}

// Error outputs an error with a ✗ icon. Known errors also get a dim
// "▸ Try:" line with the suggested action.
func (o *TTYOutput) Error(err error) {
	_, _ = fmt.Fprintln(o.w, o.styles.Error.Render("✗ "+err.Error()))
	if _, action := errors.Actionable(err); action != "" {
		_, _ = fmt.Fprintln(o.w, o.styles.Dim.Render("  ▸ Try: "+action))
	}
}

// Warning outputs a warning message with a ⚠ icon.
func (o *TTYOutput) Warning(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Warning.Render("⚠ "+msg))
}

// Info outputs an informational message.
func (o *TTYOutput) Info(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Info.Render(msg))
}

// Table outputs left-aligned columns sized to their widest cell.
func (o *TTYOutput) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	columns := make([]TableColumn, len(headers))
	for i, h := range headers {
		width := lipgloss.Width(h)
		for _, row := range rows {
			if i < len(row) && lipgloss.Width(row[i]) > width {
				width = lipgloss.Width(row[i])
			}
		}
		columns[i] = TableColumn{Name: h, Width: width}
	}

	table := NewTable(o.w, columns)
	table.WriteHeader()
	for _, row := range rows {
		table.WriteRow(row...)
	}
}

// Attempts outputs one block per attempt: a status line, each phase step,
// and on failure the error and diagnostics.
func (o *TTYOutput) Attempts(attempts []*domain.DeploymentAttempt) {
	for i, a := range attempts {
		if i > 0 {
			_, _ = fmt.Fprintln(o.w)
		}
		o.attempt(a)
	}
}

func (o *TTYOutput) attempt(a *domain.DeploymentAttempt) {
	outcome := lipgloss.NewStyle().Bold(true).Foreground(OutcomeColor(a.Outcome))
	header := fmt.Sprintf("%s %s (%s) %s", OutcomeIcon(a.Outcome), a.Target.Label(), a.Target.Host, a.Outcome)
	_, _ = fmt.Fprintf(o.w, "%s %s\n",
		outcome.Render(header),
		o.styles.Dim.Render(fmt.Sprintf("%s in %s", domain.ShortRevision(a.Revision), FormatDuration(a.Duration()))))

	for _, step := range a.Steps {
		line := fmt.Sprintf("  %s %-12s %s", StepIcon(step.Status), PhaseLabel(step.Phase), FormatDuration(step.Duration))
		switch {
		case step.Error != "":
			line += "  " + step.Error
		case step.Output != "":
			line += "  " + step.Output
		}
		_, _ = fmt.Fprintln(o.w, o.stepStyle(step).Render(line))
	}

	if a.Health != nil {
		_, _ = fmt.Fprintln(o.w, o.styles.Dim.Render(fmt.Sprintf("  health: %d round(s), healthy=%t", a.Health.Rounds, a.Health.Healthy)))
	}
	if a.Diagnostics != "" {
		for _, line := range strings.Split(strings.TrimRight(a.Diagnostics, "\n"), "\n") {
			_, _ = fmt.Fprintln(o.w, o.styles.Dim.Render("    "+line))
		}
	}
}

func (o *TTYOutput) stepStyle(step domain.StepResult) lipgloss.Style {
	switch step.Status {
	case constants.StepFailed:
		return o.styles.Error
	case constants.StepWarning:
		return o.styles.Warning
	case constants.StepSkipped:
		return o.styles.Dim
	default:
		return lipgloss.NewStyle()
	}
}

// JSON outputs a value as formatted JSON.
func (o *TTYOutput) JSON(v any) error {
	encoder := json.NewEncoder(o.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// FormatDuration rounds d for display: milliseconds under a second,
// tenths of a second otherwise.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
