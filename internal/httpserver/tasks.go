package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/bubelovv/team-tracker/internal/export"
	"github.com/bubelovv/team-tracker/internal/service"
	"github.com/bubelovv/team-tracker/internal/view"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type taskRequest struct {
	ExternalID          string   `json:"external_id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	AssigneeID          string   `json:"assignee_id"`
	Team                string   `json:"team"`
	Status              string   `json:"status"`
	Priority            string   `json:"priority"`
	Type                string   `json:"type"`
	EstimatedHours      float64  `json:"estimated_hours"`
	ActualHours         *float64 `json:"actual_hours"`
	StartDate           string   `json:"start_date"`
	DueDate             string   `json:"due_date"`
	Blocker             string   `json:"blocker"`
	ClarificationNeeded bool     `json:"clarification_needed"`
	Comments            string   `json:"comments"`
	LeadComments        string   `json:"lead_comments"`
	GitLink             string   `json:"git_link"`
	DocsLink            string   `json:"docs_link"`
	Feedback            string   `json:"customer_feedback"`
}

func (t taskRequest) input() (service.TaskInput, error) {
	var fields domain.Fields
	start, ok := parseDate(t.StartDate)
	if !ok {
		fields.Add("start_date")
	}
	due, ok := parseDate(t.DueDate)
	if !ok {
		fields.Add("due_date")
	}
	if err := fields.Err(); err != nil {
		return service.TaskInput{}, err
	}

	return service.TaskInput{
		ExternalID:          t.ExternalID,
		Title:               t.Title,
		Description:         t.Description,
		AssigneeID:          t.AssigneeID,
		Team:                t.Team,
		Status:              t.Status,
		Priority:            t.Priority,
		Type:                t.Type,
		EstimatedHours:      t.EstimatedHours,
		ActualHours:         t.ActualHours,
		StartDate:           start,
		DueDate:             due,
		Blocker:             t.Blocker,
		ClarificationNeeded: t.ClarificationNeeded,
		Comments:            t.Comments,
		LeadComments:        t.LeadComments,
		GitLink:             t.GitLink,
		DocsLink:            t.DocsLink,
		Feedback:            t.Feedback,
	}, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. An empty string
// is a valid "no date".
func parseDate(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}

func taskFilter(r *http.Request) (view.TaskFilter, error) {
	q := r.URL.Query()
	f := view.TaskFilter{
		Search:     q.Get("search"),
		Team:       strings.TrimSpace(q.Get("team")),
		AssigneeID: strings.TrimSpace(q.Get("assignee_id")),
	}

	var fields domain.Fields
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, ok := domain.ParseTaskStatus(raw)
		if !ok {
			fields.Add("status")
		}
		f.Status = status
	}
	if raw := strings.TrimSpace(q.Get("priority")); raw != "" {
		priority, ok := domain.ParsePriority(raw)
		if !ok {
			fields.Add("priority")
		}
		f.Priority = priority
	}
	return f, fields.Err()
}

func (h *handler) handleTasksList(w http.ResponseWriter, r *http.Request) {
	filter, err := taskFilter(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.BuildTaskTable(h.svc.Snapshot(), filter, h.svc.Now()))
}

// handleTasksExport streams the filtered task list as CSV.
func (h *handler) handleTasksExport(w http.ResponseWriter, r *http.Request) {
	filter, err := taskFilter(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	tasks := filter.Apply(h.svc.Snapshot().Tasks)

	name := "tasks-" + h.svc.Now().Format(time.DateOnly) + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteTasksCSV(w, tasks); err != nil {
		h.logger.Error("write csv export failed", zap.Error(err))
	}
}

func (h *handler) handleTaskAdd(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	task, err := h.svc.AddTask(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"task": task})
}

func (h *handler) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	task, err := h.svc.UpdateTask(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (h *handler) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type retroRequest struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

func (h *handler) handleRetroBoard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"columns": view.BuildRetroBoard(h.svc.Snapshot())})
}

func (h *handler) handleRetroAdd(w http.ResponseWriter, r *http.Request) {
	var req retroRequest
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	entry, err := h.svc.AddRetroEntry(r.Context(), service.RetroInput{Category: req.Category, Content: req.Content})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"entry": entry})
}

func (h *handler) handleRetroUpdate(w http.ResponseWriter, r *http.Request) {
	var req retroRequest
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	entry, err := h.svc.UpdateRetroEntry(r.Context(), chi.URLParam(r, "id"), service.RetroInput{Category: req.Category, Content: req.Content})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (h *handler) handleRetroDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteRetroEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
