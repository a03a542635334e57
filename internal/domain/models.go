package domain

import (
	"strings"
	"time"
)

type Member struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Team         string    `json:"team"`
	PasswordHash string    `json:"password_hash,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`
}

// Team is keyed by name. MemberIDs is a denormalized roster that is rebuilt
// from Member.Team whenever state is loaded.
type Team struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "not-started"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusInReview   TaskStatus = "in-review"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []TaskStatus{
	TaskStatusNotStarted,
	TaskStatusInProgress,
	TaskStatusInReview,
	TaskStatusBlocked,
	TaskStatusDone,
}

var taskStatusAliases = map[string]TaskStatus{
	"not-started": TaskStatusNotStarted,
	"todo":        TaskStatusNotStarted,
	"to-do":       TaskStatusNotStarted,
	"open":        TaskStatusNotStarted,
	"in-progress": TaskStatusInProgress,
	"doing":       TaskStatusInProgress,
	"in-review":   TaskStatusInReview,
	"review":      TaskStatusInReview,
	"testing":     TaskStatusInReview,
	"blocked":     TaskStatusBlocked,
	"done":        TaskStatusDone,
	"completed":   TaskStatusDone,
	"closed":      TaskStatusDone,
}

// ParseTaskStatus accepts the canonical values as well as the spellings used by
// trackers and older snapshots ("Not Started", "todo", "Testing", ...).
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	status, ok := taskStatusAliases[normalizeEnum(raw)]
	return status, ok
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func ParsePriority(raw string) (Priority, bool) {
	p := Priority(normalizeEnum(raw))
	for _, known := range Priorities {
		if p == known {
			return p, true
		}
	}
	return "", false
}

type CustomerFeedback string

const (
	FeedbackPending  CustomerFeedback = "pending"
	FeedbackPositive CustomerFeedback = "positive"
	FeedbackNeutral  CustomerFeedback = "neutral"
	FeedbackNegative CustomerFeedback = "negative"
)

var CustomerFeedbacks = []CustomerFeedback{FeedbackPending, FeedbackPositive, FeedbackNeutral, FeedbackNegative}

func ParseCustomerFeedback(raw string) (CustomerFeedback, bool) {
	f := CustomerFeedback(normalizeEnum(raw))
	for _, known := range CustomerFeedbacks {
		if f == known {
			return f, true
		}
	}
	return "", false
}

type Task struct {
	ID                  string           `json:"id"`
	ExternalID          string           `json:"external_id,omitempty"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	AssigneeID          string           `json:"assignee_id,omitempty"`
	Assignee            string           `json:"assignee,omitempty"`
	Team                string           `json:"team"`
	Status              TaskStatus       `json:"status"`
	Priority            Priority         `json:"priority"`
	Type                string           `json:"type,omitempty"`
	EstimatedHours      float64          `json:"estimated_hours"`
	ActualHours         *float64         `json:"actual_hours,omitempty"`
	StartDate           *time.Time       `json:"start_date,omitempty"`
	DueDate             *time.Time       `json:"due_date,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	Blocker             string           `json:"blocker,omitempty"`
	ClarificationNeeded bool             `json:"clarification_needed"`
	Comments            string           `json:"comments,omitempty"`
	LeadComments        string           `json:"lead_comments,omitempty"`
	GitLink             string           `json:"git_link,omitempty"`
	DocsLink            string           `json:"docs_link,omitempty"`
	Feedback            CustomerFeedback `json:"customer_feedback,omitempty"`
	Reopened            bool             `json:"reopened"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

type RetroCategory string

const (
	RetroWentWell      RetroCategory = "went-well"
	RetroImprovements  RetroCategory = "improvements"
	RetroConcerns      RetroCategory = "concerns"
	RetroMajorFeatures RetroCategory = "major-features"
)

var RetroCategories = []RetroCategory{RetroWentWell, RetroImprovements, RetroConcerns, RetroMajorFeatures}

func ParseRetroCategory(raw string) (RetroCategory, bool) {
	switch normalizeEnum(raw) {
	case "went-well", "what-went-well", "wins":
		return RetroWentWell, true
	case "improvements", "improvement", "to-improve":
		return RetroImprovements, true
	case "concerns", "concern":
		return RetroConcerns, true
	case "major-features", "features":
		return RetroMajorFeatures, true
	default:
		return "", false
	}
}

type RetroEntry struct {
	ID        string        `json:"id"`
	Category  RetroCategory `json:"category"`
	Content   string        `json:"content"`
	Author    string        `json:"author"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Activity is an immutable journal entry produced by a mutation.
type Activity struct {
	ID     string    `json:"id"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

type TrackerConfig struct {
	BaseURL      string     `json:"base_url"`
	Username     string     `json:"username"`
	APIKey       string     `json:"api_key"`
	ProjectKey   string     `json:"project_key"`
	LastImportAt *time.Time `json:"last_import_at,omitempty"`
}

// Configured reports whether every field required to reach the tracker is set.
func (c TrackerConfig) Configured() bool {
	return strings.TrimSpace(c.BaseURL) != "" &&
		strings.TrimSpace(c.Username) != "" &&
		strings.TrimSpace(c.APIKey) != ""
}

type EmailConfig struct {
	SMTPHost   string   `json:"smtp_host"`
	SMTPPort   int      `json:"smtp_port"`
	From       string   `json:"from"`
	Recipients []string `json:"recipients"`
	Enabled    bool     `json:"enabled"`
}

type Integrations struct {
	Tracker TrackerConfig `json:"tracker"`
	Email   EmailConfig   `json:"email"`
}

type Notifications struct {
	Deadline   bool `json:"deadline"`
	Blocked    bool `json:"blocked"`
	Overdue    bool `json:"overdue"`
	Completion bool `json:"completion"`
}

type Settings struct {
	Theme                  string        `json:"theme"`
	RefreshIntervalSeconds int           `json:"refresh_interval_seconds"`
	Notifications          Notifications `json:"notifications"`
}

// Session is the identity of the member currently signed in.
type Session struct {
	MemberID   string    `json:"member_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

func normalizeEnum(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.Join(strings.Fields(s), "-")
	return s
}
