package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/taskdesk/internal/client/api"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	keyStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderUsers(users []api.User) string {
	t := newTable("ID", "Name", "Email", "Role")
	for _, u := range users {
		t.Row(strconv.Itoa(u.ID), u.Name, u.Email, u.Role)
	}
	return t.String()
}

func renderTasks(tasks []api.Task) string {
	t := newTable("ID", "Title", "Due", "Status", "Assignee")
	for _, task := range tasks {
		assignee := task.AssignedUserName
		if assignee == "" && task.AssignedUserID != 0 {
			assignee = "#" + strconv.Itoa(task.AssignedUserID)
		}
		t.Row(strconv.Itoa(task.ID), task.Title, task.DueDay(), task.Status.String(), assignee)
	}
	return t.String()
}

// renderKV renders two-column rows without a header.
func renderKV(rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return cellStyle
		}).
		Rows(rows...)
	return t.String()
}
