package httpserver

import (
	"context"
	"time"

	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/bubelovv/team-tracker/internal/service"
)

type Service interface {
	Snapshot() domain.State
	Now() time.Time

	Signup(ctx context.Context, in service.SignupInput) (domain.Session, error)
	Login(ctx context.Context, email, password string) (domain.Session, error)
	Logout(ctx context.Context)
	CurrentSession() (domain.Session, bool)

	AddMember(ctx context.Context, in service.MemberInput) (domain.Member, error)
	UpdateMember(ctx context.Context, id string, in service.MemberInput) (domain.Member, error)
	DeleteMember(ctx context.Context, id string) (bool, error)
	ListTeams() []domain.Team
	AddTeam(ctx context.Context, name string) (domain.Team, error)
	DeleteTeam(ctx context.Context, name string) (bool, error)

	AddTask(ctx context.Context, in service.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, in service.TaskInput) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)

	AddRetroEntry(ctx context.Context, in service.RetroInput) (domain.RetroEntry, error)
	UpdateRetroEntry(ctx context.Context, id string, in service.RetroInput) (domain.RetroEntry, error)
	DeleteRetroEntry(ctx context.Context, id string) (bool, error)

	ActivityFeed(limit int) []domain.Activity

	Settings() domain.Settings
	UpdateSettings(ctx context.Context, in domain.Settings) (domain.Settings, error)
	Integrations() domain.Integrations
	UpdateTrackerConfig(ctx context.Context, in domain.TrackerConfig) (domain.TrackerConfig, error)
	UpdateEmailConfig(ctx context.Context, in domain.EmailConfig) (domain.EmailConfig, error)
	TestTrackerConnection(ctx context.Context) error
	ImportTasks(ctx context.Context) (service.ImportResult, error)
}
