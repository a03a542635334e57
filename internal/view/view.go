// Package view projects a state snapshot into the documents the dashboard
// displays. Every function is pure: the same state, inputs and clock give the
// same output.
package view

import (
	"strings"
	"time"

	"github.com/bubelovv/team-tracker/internal/derive"
	"github.com/bubelovv/team-tracker/internal/domain"
)

const DefaultFeedSize = 10

// TaskFilter is AND-combined; empty fields match everything.
type TaskFilter struct {
	Search     string
	Status     domain.TaskStatus
	Priority   domain.Priority
	Team       string
	AssigneeID string
}

func (f TaskFilter) Match(t domain.Task) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !containsFold(t.Title, term) &&
			!containsFold(t.Description, term) &&
			!containsFold(t.ID, term) &&
			!containsFold(t.ExternalID, term) {
			return false
		}
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Team != "" && t.Team != f.Team {
		return false
	}
	if f.AssigneeID != "" && t.AssigneeID != f.AssigneeID {
		return false
	}
	return true
}

func (f TaskFilter) Apply(tasks []domain.Task) []domain.Task {
	out := []domain.Task{}
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

type Dashboard struct {
	KPIs               derive.KPIs          `json:"kpis"`
	StatusDistribution []derive.StatusCount `json:"status_distribution"`
	Teams              []derive.GroupStat   `json:"teams"`
	BlockedByAssignee  []derive.GroupStat   `json:"blocked_by_assignee"`
	Alerts             []derive.Alert       `json:"alerts"`
	Activity           []domain.Activity    `json:"activity"`
	MemberCount        int                  `json:"member_count"`
	GeneratedAt        time.Time            `json:"generated_at"`
}

func BuildDashboard(st domain.State, now time.Time, feedSize int) Dashboard {
	if feedSize <= 0 {
		feedSize = DefaultFeedSize
	}
	return Dashboard{
		KPIs:               derive.ComputeKPIs(st.Tasks, now),
		StatusDistribution: derive.StatusDistribution(st.Tasks),
		Teams:              derive.TeamBreakdown(st.Teams, st.Tasks),
		BlockedByAssignee:  derive.BlockedByAssignee(st.Tasks),
		Alerts:             derive.Alerts(st.Tasks, now),
		Activity:           derive.ActivityFeed(st.Activity, feedSize),
		MemberCount:        len(st.Members),
		GeneratedAt:        now,
	}
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type FilterOptions struct {
	Statuses   []Option `json:"statuses"`
	Priorities []Option `json:"priorities"`
	Teams      []Option `json:"teams"`
	Assignees  []Option `json:"assignees"`
}

type TaskRow struct {
	domain.Task
	Overdue bool `json:"overdue"`
}

type TaskTable struct {
	Rows    []TaskRow     `json:"rows"`
	Total   int           `json:"total"`
	Shown   int           `json:"shown"`
	Options FilterOptions `json:"options"`
}

func BuildTaskTable(st domain.State, filter TaskFilter, now time.Time) TaskTable {
	filtered := filter.Apply(st.Tasks)
	rows := make([]TaskRow, 0, len(filtered))
	for _, t := range filtered {
		rows = append(rows, TaskRow{Task: t, Overdue: derive.IsOverdue(t, now)})
	}
	return TaskTable{
		Rows:    rows,
		Total:   len(st.Tasks),
		Shown:   len(rows),
		Options: buildOptions(st),
	}
}

// Assignee options come from the member list, so deleted members disappear
// from the filter even while old tasks still carry their name.
func buildOptions(st domain.State) FilterOptions {
	opts := FilterOptions{
		Statuses:   make([]Option, 0, len(domain.TaskStatuses)),
		Priorities: make([]Option, 0, len(domain.Priorities)),
		Teams:      make([]Option, 0, len(st.Teams)),
		Assignees:  make([]Option, 0, len(st.Members)),
	}
	for _, s := range domain.TaskStatuses {
		opts.Statuses = append(opts.Statuses, Option{Value: string(s), Label: StatusLabel(s)})
	}
	for _, p := range domain.Priorities {
		opts.Priorities = append(opts.Priorities, Option{Value: string(p), Label: titleCase(string(p))})
	}
	for _, t := range st.Teams {
		opts.Teams = append(opts.Teams, Option{Value: t.Name, Label: t.Name})
	}
	for _, m := range st.Members {
		opts.Assignees = append(opts.Assignees, Option{Value: m.ID, Label: m.Name})
	}
	return opts
}

type MemberCard struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Team           string `json:"team"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	BlockedTasks   int    `json:"blocked_tasks"`
	CompletionRate int    `json:"completion_rate"`
}

type TeamPage struct {
	Members []MemberCard       `json:"members"`
	Teams   []derive.GroupStat `json:"teams"`
}

func BuildTeamPage(st domain.State) TeamPage {
	stats := derive.AssigneeBreakdown(st.Members, st.Tasks)
	cards := make([]MemberCard, 0, len(st.Members))
	for i, m := range st.Members {
		cards = append(cards, MemberCard{
			ID:             m.ID,
			Name:           m.Name,
			Email:          m.Email,
			Role:           m.Role,
			Team:           m.Team,
			TotalTasks:     stats[i].Total,
			CompletedTasks: stats[i].Completed,
			BlockedTasks:   stats[i].Blocked,
			CompletionRate: stats[i].CompletionRate,
		})
	}
	return TeamPage{
		Members: cards,
		Teams:   derive.TeamBreakdown(st.Teams, st.Tasks),
	}
}

type RetroColumn struct {
	Category domain.RetroCategory `json:"category"`
	Title    string               `json:"title"`
	Entries  []domain.RetroEntry  `json:"entries"`
}

var retroTitles = map[domain.RetroCategory]string{
	domain.RetroWentWell:      "What went well",
	domain.RetroImprovements:  "Improvements",
	domain.RetroConcerns:      "Concerns",
	domain.RetroMajorFeatures: "Major features",
}

// BuildRetroBoard returns the four columns in fixed order, entries newest first.
func BuildRetroBoard(st domain.State) []RetroColumn {
	cols := make([]RetroColumn, 0, len(domain.RetroCategories))
	for _, c := range domain.RetroCategories {
		col := RetroColumn{Category: c, Title: retroTitles[c], Entries: []domain.RetroEntry{}}
		for i := len(st.Retro) - 1; i >= 0; i-- {
			if st.Retro[i].Category == c {
				col.Entries = append(col.Entries, st.Retro[i])
			}
		}
		cols = append(cols, col)
	}
	return cols
}

func StatusLabel(s domain.TaskStatus) string {
	return titleCase(strings.ReplaceAll(string(s), "-", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
