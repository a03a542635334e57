// Package derive computes read-only aggregates over a state snapshot. Nothing
// here caches; callers recompute on every read.
package derive

import (
	"fmt"
	"math"
	"time"

	"github.com/bubelovv/team-tracker/internal/activity"
	"github.com/bubelovv/team-tracker/internal/domain"
)

// CompletionRate is round(100 * done / total), or 0 for an empty list.
func CompletionRate(tasks []domain.Task) int {
	done := 0
	for _, t := range tasks {
		if t.Status == domain.TaskStatusDone {
			done++
		}
	}
	return rate(done, len(tasks))
}

func rate(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// IsOverdue reports whether an unfinished task is past its due date. Tasks
// without a due date are never overdue.
func IsOverdue(t domain.Task, now time.Time) bool {
	if t.Status == domain.TaskStatusDone || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(now)
}

func Overdue(tasks []domain.Task, now time.Time) []domain.Task {
	out := []domain.Task{}
	for _, t := range tasks {
		if IsOverdue(t, now) {
			out = append(out, t)
		}
	}
	return out
}

type KPIs struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"in_progress"`
	Blocked        int `json:"blocked"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completion_rate"`
}

func ComputeKPIs(tasks []domain.Task, now time.Time) KPIs {
	k := KPIs{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusDone:
			k.Completed++
		case domain.TaskStatusInProgress:
			k.InProgress++
		case domain.TaskStatusBlocked:
			k.Blocked++
		}
		if IsOverdue(t, now) {
			k.Overdue++
		}
	}
	k.CompletionRate = rate(k.Completed, k.Total)
	return k
}

type StatusCount struct {
	Status domain.TaskStatus `json:"status"`
	Count  int               `json:"count"`
}

// StatusDistribution counts tasks per status, always listing every status.
func StatusDistribution(tasks []domain.Task) []StatusCount {
	counts := make(map[domain.TaskStatus]int, len(domain.TaskStatuses))
	for _, t := range tasks {
		counts[t.Status]++
	}
	out := make([]StatusCount, 0, len(domain.TaskStatuses))
	for _, s := range domain.TaskStatuses {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

type GroupStat struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	Blocked        int    `json:"blocked"`
	CompletionRate int    `json:"completion_rate"`
}

func (g *GroupStat) add(t domain.Task) {
	g.Total++
	switch t.Status {
	case domain.TaskStatusDone:
		g.Completed++
	case domain.TaskStatusBlocked:
		g.Blocked++
	}
}

// TeamBreakdown groups tasks by team in team-list order. Teams that only
// appear on tasks follow in order of first appearance.
func TeamBreakdown(teams []domain.Team, tasks []domain.Task) []GroupStat {
	out := make([]GroupStat, 0, len(teams))
	index := make(map[string]int, len(teams))
	for _, team := range teams {
		if _, seen := index[team.Name]; seen {
			continue
		}
		index[team.Name] = len(out)
		out = append(out, GroupStat{Key: team.Name, Label: team.Name})
	}
	for _, t := range tasks {
		i, ok := index[t.Team]
		if !ok {
			index[t.Team] = len(out)
			i = len(out)
			out = append(out, GroupStat{Key: t.Team, Label: t.Team})
		}
		out[i].add(t)
	}
	for i := range out {
		out[i].CompletionRate = rate(out[i].Completed, out[i].Total)
	}
	return out
}

// AssigneeBreakdown groups tasks by assignee id in member-list order. Tasks of
// unknown or deleted members are not counted.
func AssigneeBreakdown(members []domain.Member, tasks []domain.Task) []GroupStat {
	out := make([]GroupStat, 0, len(members))
	index := make(map[string]int, len(members))
	for _, m := range members {
		index[m.ID] = len(out)
		out = append(out, GroupStat{Key: m.ID, Label: m.Name})
	}
	for _, t := range tasks {
		if i, ok := index[t.AssigneeID]; ok && t.AssigneeID != "" {
			out[i].add(t)
		}
	}
	for i := range out {
		out[i].CompletionRate = rate(out[i].Completed, out[i].Total)
	}
	return out
}

// BlockedByAssignee counts blocked tasks per assignee name, in first-seen order.
func BlockedByAssignee(tasks []domain.Task) []GroupStat {
	var out []GroupStat
	index := map[string]int{}
	for _, t := range tasks {
		if t.Status != domain.TaskStatusBlocked {
			continue
		}
		name := t.Assignee
		if name == "" {
			name = "Unassigned"
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, GroupStat{Key: t.AssigneeID, Label: name})
		}
		out[i].Total++
		out[i].Blocked++
	}
	if out == nil {
		out = []GroupStat{}
	}
	return out
}

type AlertKind string

const (
	AlertBlocked AlertKind = "blocked"
	AlertOverdue AlertKind = "overdue"
)

type Alert struct {
	Kind    AlertKind `json:"kind"`
	TaskID  string    `json:"task_id"`
	Message string    `json:"message"`
}

// Alerts lists blocked tasks first, then overdue ones.
func Alerts(tasks []domain.Task, now time.Time) []Alert {
	out := []Alert{}
	for _, t := range tasks {
		if t.Status != domain.TaskStatusBlocked {
			continue
		}
		blocker := t.Blocker
		if blocker == "" {
			blocker = "no reason given"
		}
		out = append(out, Alert{
			Kind:    AlertBlocked,
			TaskID:  t.ID,
			Message: fmt.Sprintf("%s: %s is blocked - %s", label(t), t.Title, blocker),
		})
	}
	for _, t := range tasks {
		if !IsOverdue(t, now) {
			continue
		}
		out = append(out, Alert{
			Kind:    AlertOverdue,
			TaskID:  t.ID,
			Message: fmt.Sprintf("%s: %s is overdue (deadline: %s)", label(t), t.Title, t.DueDate.Format(time.DateOnly)),
		})
	}
	return out
}

func label(t domain.Task) string {
	if t.ExternalID != "" {
		return t.ExternalID
	}
	return t.ID
}

// ActivityFeed returns the n most recent records, newest first.
func ActivityFeed(records []domain.Activity, n int) []domain.Activity {
	return activity.Recent(records, n)
}
