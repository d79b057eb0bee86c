package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a column in a table.
type TableColumn struct {
	Name  string
	Width int
}

// Table writes aligned rows with a styled header.
type Table struct {
	w       io.Writer
	header  lipgloss.Style
	columns []TableColumn
}

// NewTable creates a new table with the given columns.
func NewTable(w io.Writer, columns []TableColumn) *Table {
	return &Table{
		w:       w,
		header:  NewOutputStyles().Header,
		columns: columns,
	}
}

// WriteHeader writes the table header row.
func (t *Table) WriteHeader() {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = strings.ToUpper(col.Name)
	}
	_, _ = fmt.Fprintln(t.w, t.header.Render(t.format(names)))
}

// WriteRow writes a data row. Values wider than their column are truncated.
func (t *Table) WriteRow(values ...string) {
	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		if i >= len(values) {
			continue
		}
		value := values[i]
		// Width > 1 avoids a slice bounds panic.
		if col.Width > 1 && len([]rune(value)) > col.Width {
			value = string([]rune(value)[:col.Width-1]) + "…"
		}
		cells[i] = value
	}
	_, _ = fmt.Fprintln(t.w, t.format(cells))
}

func (t *Table) format(cells []string) string {
	var b strings.Builder
	for i, col := range t.columns {
		if i > 0 {
			b.WriteString("  ")
		}
		cell := cells[i]
		b.WriteString(cell)
		if i < len(t.columns)-1 {
			if pad := col.Width - lipgloss.Width(cell); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
	}
	return b.String()
}
