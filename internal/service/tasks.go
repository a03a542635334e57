package service

import (
	"context"
	"strings"
	"time"

	"github.com/bubelovv/team-tracker/internal/domain"
)

type TaskInput struct {
	ExternalID          string
	Title               string
	Description         string
	AssigneeID          string
	Team                string
	Status              string
	Priority            string
	Type                string
	EstimatedHours      float64
	ActualHours         *float64
	StartDate           *time.Time
	DueDate             *time.Time
	Blocker             string
	ClarificationNeeded bool
	Comments            string
	LeadComments        string
	GitLink             string
	DocsLink            string
	Feedback            string
}

type parsedTask struct {
	status   domain.TaskStatus
	priority domain.Priority
	feedback domain.CustomerFeedback
}

func (in TaskInput) validate() (parsedTask, error) {
	var fields domain.Fields
	fields.Require("title", in.Title)
	fields.Require("team", in.Team)

	p := parsedTask{
		status:   domain.TaskStatusNotStarted,
		priority: domain.PriorityMedium,
		feedback: domain.FeedbackPending,
	}
	if strings.TrimSpace(in.Status) != "" {
		status, ok := domain.ParseTaskStatus(in.Status)
		if !ok {
			fields.Add("status")
		}
		p.status = status
	}
	if strings.TrimSpace(in.Priority) != "" {
		priority, ok := domain.ParsePriority(in.Priority)
		if !ok {
			fields.Add("priority")
		}
		p.priority = priority
	}
	if strings.TrimSpace(in.Feedback) != "" {
		feedback, ok := domain.ParseCustomerFeedback(in.Feedback)
		if !ok {
			fields.Add("customer_feedback")
		}
		p.feedback = feedback
	}
	if in.EstimatedHours < 0 {
		fields.Add("estimated_hours")
	}
	if in.ActualHours != nil && *in.ActualHours < 0 {
		fields.Add("actual_hours")
	}
	return p, fields.Err()
}

// apply copies input fields onto t and resolves the assignee against the
// member list. An unknown assignee is rejected unless it is the one the task
// already carries, in which case the stored name is kept.
func (in TaskInput) apply(st *domain.State, t *domain.Task, p parsedTask, now time.Time) error {
	assignee := ""
	if in.AssigneeID != "" {
		switch idx := st.MemberIndex(in.AssigneeID); {
		case idx >= 0:
			assignee = st.Members[idx].Name
		case in.AssigneeID == t.AssigneeID:
			assignee = t.Assignee
		default:
			return &domain.ValidationError{Fields: []string{"assignee_id"}}
		}
	}

	wasDone := t.Status == domain.TaskStatusDone
	t.ExternalID = strings.TrimSpace(in.ExternalID)
	t.Title = strings.TrimSpace(in.Title)
	t.Description = strings.TrimSpace(in.Description)
	t.AssigneeID = in.AssigneeID
	t.Assignee = assignee
	t.Team = strings.TrimSpace(in.Team)
	t.Status = p.status
	t.Priority = p.priority
	t.Type = strings.TrimSpace(in.Type)
	if t.Type == "" {
		t.Type = defaultTaskType
	}
	t.EstimatedHours = in.EstimatedHours
	t.ActualHours = copyOf(in.ActualHours)
	t.StartDate = copyOf(in.StartDate)
	t.DueDate = copyOf(in.DueDate)
	t.Blocker = strings.TrimSpace(in.Blocker)
	t.ClarificationNeeded = in.ClarificationNeeded
	t.Comments = in.Comments
	t.LeadComments = in.LeadComments
	t.GitLink = strings.TrimSpace(in.GitLink)
	t.DocsLink = strings.TrimSpace(in.DocsLink)
	t.Feedback = p.feedback
	t.UpdatedAt = now

	switch {
	case t.Status == domain.TaskStatusDone && !wasDone:
		completed := now
		t.CompletedAt = &completed
	case t.Status != domain.TaskStatusDone:
		t.CompletedAt = nil
		if wasDone {
			t.Reopened = true
		}
	}
	return nil
}

// copyOf keeps caller-owned pointers out of stored state.
func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func (s *Service) ListTasks() []domain.Task {
	return s.store.Snapshot().Tasks
}

func (s *Service) AddTask(ctx context.Context, in TaskInput) (domain.Task, error) {
	parsed, err := in.validate()
	if err != nil {
		return domain.Task{}, err
	}

	_, actor := s.actor()
	now := s.Now()
	task := domain.Task{ID: s.newID(), CreatedAt: now}
	if in.StartDate == nil {
		start := now.Truncate(24 * time.Hour)
		in.StartDate = &start
	}
	err = s.store.Mutate(ctx, func(st *domain.State) error {
		if err := in.apply(st, &task, parsed, now); err != nil {
			return err
		}
		if task.ExternalID != "" && st.TaskByExternalID(task.ExternalID) >= 0 {
			return &domain.ValidationError{Fields: []string{"external_id"}}
		}
		st.Tasks = append(st.Tasks, task)
		s.record(st, actor, "created task", task.Title)
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task.Clone(), nil
}

func (s *Service) UpdateTask(ctx context.Context, id string, in TaskInput) (domain.Task, error) {
	parsed, err := in.validate()
	if err != nil {
		return domain.Task{}, err
	}

	_, actor := s.actor()
	now := s.Now()
	var updated domain.Task
	err = s.store.Mutate(ctx, func(st *domain.State) error {
		idx := st.TaskIndex(id)
		if idx < 0 {
			return domain.ErrTaskNotFound
		}
		if other := st.TaskByExternalID(in.ExternalID); other >= 0 && other != idx {
			return &domain.ValidationError{Fields: []string{"external_id"}}
		}
		task := st.Tasks[idx]
		if err := in.apply(st, &task, parsed, now); err != nil {
			return err
		}
		st.Tasks[idx] = task
		updated = task
		s.record(st, actor, "updated task", task.Title)
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return updated.Clone(), nil
}

// DeleteTask removes a task; an unknown id is a no-op and reports false.
func (s *Service) DeleteTask(ctx context.Context, id string) (bool, error) {
	_, actor := s.actor()
	deleted := false
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		idx := st.TaskIndex(id)
		if idx < 0 {
			return nil
		}
		removed := st.Tasks[idx]
		st.Tasks = append(st.Tasks[:idx], st.Tasks[idx+1:]...)
		s.record(st, actor, "deleted task", removed.Title)
		deleted = true
		return nil
	})
	return deleted, err
}
