package domain

import "strings"

const (
	StateVersion = 1

	DefaultTheme           = "light"
	DefaultRefreshInterval = 60
)

// State is the full application snapshot persisted under a single key.
type State struct {
	Version      int          `json:"version"`
	Members      []Member     `json:"members"`
	Teams        []Team       `json:"teams"`
	Tasks        []Task       `json:"tasks"`
	Retro        []RetroEntry `json:"retrospective"`
	Activity     []Activity   `json:"activity"`
	Integrations Integrations `json:"integrations"`
	Settings     Settings     `json:"settings"`
}

// NewState returns an empty but fully shaped dataset with default settings.
func NewState() State {
	return State{
		Version:  StateVersion,
		Members:  []Member{},
		Teams:    []Team{},
		Tasks:    []Task{},
		Retro:    []RetroEntry{},
		Activity: []Activity{},
		Integrations: Integrations{
			Email: EmailConfig{Recipients: []string{}},
		},
		Settings: DefaultSettings(),
	}
}

func DefaultSettings() Settings {
	return Settings{
		Theme:                  DefaultTheme,
		RefreshIntervalSeconds: DefaultRefreshInterval,
		Notifications: Notifications{
			Deadline: true,
			Blocked:  true,
			Overdue:  true,
		},
	}
}

// Clone returns a deep copy; the result shares no slices or pointers with s.
func (s State) Clone() State {
	out := s
	out.Members = append([]Member{}, s.Members...)
	out.Teams = make([]Team, len(s.Teams))
	for i, team := range s.Teams {
		out.Teams[i] = Team{Name: team.Name, MemberIDs: append([]string{}, team.MemberIDs...)}
	}
	out.Tasks = make([]Task, len(s.Tasks))
	for i, task := range s.Tasks {
		out.Tasks[i] = task.Clone()
	}
	out.Retro = append([]RetroEntry{}, s.Retro...)
	out.Activity = append([]Activity{}, s.Activity...)
	out.Integrations.Email.Recipients = append([]string{}, s.Integrations.Email.Recipients...)
	if s.Integrations.Tracker.LastImportAt != nil {
		t := *s.Integrations.Tracker.LastImportAt
		out.Integrations.Tracker.LastImportAt = &t
	}
	return out
}

// Clone copies t without sharing its optional fields.
func (t Task) Clone() Task {
	out := t
	if t.ActualHours != nil {
		v := *t.ActualHours
		out.ActualHours = &v
	}
	if t.StartDate != nil {
		v := *t.StartDate
		out.StartDate = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		out.DueDate = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		out.CompletedAt = &v
	}
	return out
}

// Normalize repairs a decoded snapshot: nil collections become empty, unknown
// enum values fall back to defaults and team rosters are rebuilt from members.
func (s *State) Normalize(activityCap int) {
	if s.Version == 0 {
		s.Version = StateVersion
	}
	if s.Members == nil {
		s.Members = []Member{}
	}
	if s.Teams == nil {
		s.Teams = []Team{}
	}
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.Retro == nil {
		s.Retro = []RetroEntry{}
	}
	if s.Activity == nil {
		s.Activity = []Activity{}
	}
	if s.Integrations.Email.Recipients == nil {
		s.Integrations.Email.Recipients = []string{}
	}
	if activityCap > 0 && len(s.Activity) > activityCap {
		s.Activity = s.Activity[:activityCap]
	}

	for i := range s.Tasks {
		task := &s.Tasks[i]
		if status, ok := ParseTaskStatus(string(task.Status)); ok {
			task.Status = status
		} else {
			task.Status = TaskStatusNotStarted
		}
		if p, ok := ParsePriority(string(task.Priority)); ok {
			task.Priority = p
		} else {
			task.Priority = PriorityMedium
		}
		if task.Feedback != "" {
			if f, ok := ParseCustomerFeedback(string(task.Feedback)); ok {
				task.Feedback = f
			} else {
				task.Feedback = FeedbackPending
			}
		}
	}
	kept := s.Retro[:0]
	for _, entry := range s.Retro {
		if category, ok := ParseRetroCategory(string(entry.Category)); ok {
			entry.Category = category
			kept = append(kept, entry)
		}
	}
	s.Retro = kept

	if s.Settings.Theme == "" {
		s.Settings.Theme = DefaultTheme
	}
	if s.Settings.RefreshIntervalSeconds <= 0 {
		s.Settings.RefreshIntervalSeconds = DefaultRefreshInterval
	}

	s.RebuildRosters()
}

// RebuildRosters makes every team roster match the members that name it,
// creating teams that members reference but the team list lacks.
func (s *State) RebuildRosters() {
	for i := range s.Teams {
		s.Teams[i].MemberIDs = []string{}
	}
	for _, m := range s.Members {
		if m.Team == "" {
			continue
		}
		idx := s.TeamIndex(m.Team)
		if idx < 0 {
			s.Teams = append(s.Teams, Team{Name: m.Team, MemberIDs: []string{}})
			idx = len(s.Teams) - 1
		}
		s.Teams[idx].MemberIDs = append(s.Teams[idx].MemberIDs, m.ID)
	}
}

func (s *State) MemberIndex(id string) int {
	for i, m := range s.Members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// MemberByEmail matches case-insensitively.
func (s *State) MemberByEmail(email string) int {
	email = strings.TrimSpace(email)
	for i, m := range s.Members {
		if strings.EqualFold(m.Email, email) {
			return i
		}
	}
	return -1
}

func (s *State) TeamIndex(name string) int {
	for i, t := range s.Teams {
		if t.Name == name {
			return i
		}
	}
	return -1
}

func (s *State) TaskIndex(id string) int {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) TaskByExternalID(externalID string) int {
	if externalID == "" {
		return -1
	}
	for i, t := range s.Tasks {
		if strings.EqualFold(t.ExternalID, externalID) {
			return i
		}
	}
	return -1
}

func (s *State) RetroIndex(id string) int {
	for i, r := range s.Retro {
		if r.ID == id {
			return i
		}
	}
	return -1
}
