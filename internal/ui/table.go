package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderTable renders rows under a header row with a rounded border.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	return t.Render()
}

// RenderSection renders a titled block of key/value lines.
func RenderSection(title string, details ...Param) string {
	out := SectionTitleStyle.Render(title)
	for _, d := range details {
		if d.Value == "" {
			continue
		}
		out += "\n" + ResultKeyStyle.Render("  "+d.Key) + " " + ResultValueStyle.Render(d.Value)
	}
	return out
}
