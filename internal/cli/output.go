package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"podtracker/internal/report"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	totalStyle   = numberStyle.Bold(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
)

// newTable returns a bordered table; the first column is left aligned and
// the others are right aligned.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
}

func matrixTable(m *report.Matrix) *table.Table {
	t := newTable(append([]string{report.ColProductName}, m.Columns...)...)
	for _, row := range m.Rows {
		cells := make([]string, 0, len(m.Columns)+1)
		cells = append(cells, row)
		for _, col := range m.Columns {
			cells = append(cells, humanize.Comma(m.Value(row, col)))
		}
		t.Row(cells...)
	}
	return t
}

func resultTable(res report.Result) *table.Table {
	t := newTable(append(append([]string{}, res.GroupBy...), report.ValueColumn)...)
	for _, row := range res.Rows {
		t.Row(append(append([]string{}, row.Keys...), humanize.Comma(row.Value))...)
	}
	return t
}

func success(cmd *cobra.Command, msg string) {
	cmd.Println(successStyle.Render("✔ " + msg))
}

func warn(cmd *cobra.Command, msg string) {
	cmd.Println(warningStyle.Render("✘ " + msg))
}
