// Package render draws tables for people: terminals, logs and debug output.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/spektr-org/tabula/table"
)

// MaxRows caps how many data rows Table draws. Zero draws everything.
var MaxRows = 200

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// Table renders t as a bordered grid. The row-label column comes first;
// Number columns are right-aligned.
func Table(t *table.Table) string {
	headers := t.RowKeys()
	rows, err := t.Rows()
	if err != nil {
		return Summary(t) + " (" + err.Error() + ")"
	}

	numeric := make([]bool, len(headers))
	cols := t.Columns()
	offset := 0
	if l := t.Label(); l != nil {
		numeric[0] = l.Type() == table.TypeNumber
		offset = 1
	}
	for i, c := range cols {
		numeric[i+offset] = c.Type() == table.TypeNumber
	}

	truncated := 0
	if MaxRows > 0 && len(rows) > MaxRows {
		truncated = len(rows) - MaxRows
		rows = rows[:MaxRows]
	}

	grid := ltable.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return headerStyle
			case col < len(numeric) && numeric[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		grid.Row(cells...)
	}

	var sb strings.Builder
	sb.WriteString(Summary(t))
	sb.WriteByte('\n')
	sb.WriteString(grid.String())
	if truncated > 0 {
		fmt.Fprintf(&sb, "\n... %d more rows", truncated)
	}
	return sb.String()
}

// Summary describes the shape of t on one line.
func Summary(t *table.Table) string {
	name := t.Name
	if name == "" {
		name = "(unnamed)"
	}
	parts := make([]string, 0, t.NumColumns())
	for _, c := range t.Columns() {
		parts = append(parts, c.Name+":"+strings.ToLower(c.Type().String()))
	}
	return fmt.Sprintf("%s: %d rows x %d columns [%s]", name, t.RowCount(), t.NumColumns(), strings.Join(parts, ", "))
}
