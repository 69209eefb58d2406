package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var tableColumns = []table.Column{
	{Title: "Match", Width: 12},
	{Title: "Folder", Width: 22},
	{Title: "Project", Width: 24},
	{Title: "Bucket", Width: 30},
	{Title: "Permissions", Width: 48},
}

// buildRows converts entries to table rows.
func buildRows(entries []entry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			string(e.Row.ExposureMatch),
			truncate(e.Row.FolderID, tableColumns[1].Width),
			truncate(e.Row.ProjectID, tableColumns[2].Width),
			truncate(e.Row.BucketName, tableColumns[3].Width),
			truncate(e.Row.Permissions, tableColumns[4].Width),
		})
	}
	return rows
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return s[:maxLen]
	}
	return s[:maxLen-len(ellipsis)] + ellipsis
}

// newTable creates a bubbles table with standard columns and styling.
func newTable(rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorAccent).
		Bold(false)
	t.SetStyles(s)

	return t
}
