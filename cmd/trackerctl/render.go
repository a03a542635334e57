package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bubelovv/team-tracker/internal/derive"
	"github.com/bubelovv/team-tracker/internal/view"
	"github.com/charmbracelet/lipgloss"
)

const maxCellWidth = 40

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#AAAAAA"))
	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func renderDashboard(d view.Dashboard) string {
	var b strings.Builder

	kpis := lipgloss.JoinHorizontal(lipgloss.Top,
		kpiBox("Tasks", fmt.Sprint(d.KPIs.Total)),
		kpiBox("Completed", fmt.Sprintf("%d (%d%%)", d.KPIs.Completed, d.KPIs.CompletionRate)),
		kpiBox("In progress", fmt.Sprint(d.KPIs.InProgress)),
		kpiBox("Blocked", fmt.Sprint(d.KPIs.Blocked)),
		kpiBox("Overdue", fmt.Sprint(d.KPIs.Overdue)),
		kpiBox("Members", fmt.Sprint(d.MemberCount)),
	)
	b.WriteString(kpis + "\n\n")

	b.WriteString(titleStyle.Render("Status") + "\n")
	rows := make([][]string, 0, len(d.StatusDistribution))
	for _, s := range d.StatusDistribution {
		rows = append(rows, []string{view.StatusLabel(s.Status), fmt.Sprint(s.Count)})
	}
	b.WriteString(renderTable([]string{"Status", "Tasks"}, rows) + "\n")

	b.WriteString(titleStyle.Render("Teams") + "\n")
	b.WriteString(renderGroups(d.Teams) + "\n")

	b.WriteString(titleStyle.Render("Alerts") + "\n")
	if len(d.Alerts) == 0 {
		b.WriteString(mutedStyle.Render("no alerts") + "\n")
	}
	for _, a := range d.Alerts {
		b.WriteString(alertStyle.Render("! "+a.Message) + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("Recent activity") + "\n")
	if len(d.Activity) == 0 {
		b.WriteString(mutedStyle.Render("no activity yet") + "\n")
	}
	for _, a := range d.Activity {
		line := fmt.Sprintf("%s  %s %s", a.At.Format(time.DateTime), a.Actor, a.Action)
		if a.Detail != "" {
			line += ": " + a.Detail
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func kpiBox(label, value string) string {
	return boxStyle.Render(headerStyle.Render(label) + "\n" + value)
}

func renderGroups(groups []derive.GroupStat) string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			fmt.Sprint(g.Total),
			fmt.Sprint(g.Completed),
			fmt.Sprint(g.Blocked),
			fmt.Sprintf("%d%%", g.CompletionRate),
		})
	}
	return renderTable([]string{"Team", "Tasks", "Done", "Blocked", "Rate"}, rows)
}

func renderTasks(t view.TaskTable) string {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		id := r.ExternalID
		if id == "" {
			id = r.ID
		}
		due := ""
		if r.DueDate != nil {
			due = r.DueDate.Format(time.DateOnly)
			if r.Overdue {
				due += " !"
			}
		}
		rows = append(rows, []string{
			id,
			r.Title,
			r.Assignee,
			r.Team,
			view.StatusLabel(r.Status),
			string(r.Priority),
			due,
		})
	}
	table := renderTable([]string{"ID", "Title", "Assignee", "Team", "Status", "Priority", "Due"}, rows)
	footer := mutedStyle.Render(fmt.Sprintf("%d of %d tasks", t.Shown, t.Total))
	return table + footer + "\n"
}

// renderTable lays rows out in left-aligned columns sized to their widest cell.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range row {
			row[i] = truncate(row[i])
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(renderRow(headers, widths, headerStyle) + "\n")
	for _, row := range rows {
		b.WriteString(renderRow(row, widths, lipgloss.NewStyle()) + "\n")
	}
	return b.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = style.Width(widths[i] + 2).Render(c)
	}
	return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCellWidth {
		return s
	}
	return string(r[:maxCellWidth-1]) + "…"
}
