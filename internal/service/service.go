package service

import (
	"context"
	"sync"
	"time"

	"github.com/bubelovv/team-tracker/internal/activity"
	"github.com/bubelovv/team-tracker/internal/auth"
	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/bubelovv/team-tracker/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	systemActor = "System"

	AdminRole       = "Admin"
	AdminTeam       = "Management"
	DefaultRole     = "Member"
	DefaultTeam     = "General"
	defaultTaskType = "General"
)

// Tracker is the issue-tracker integration used for imports.
type Tracker interface {
	Fetch(ctx context.Context, cfg domain.TrackerConfig) ([]domain.Task, error)
	TestConnection(ctx context.Context, cfg domain.TrackerConfig) error
}

type Service struct {
	store   *store.Store
	tracker Tracker
	hasher  auth.Hasher
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

func New(st *store.Store, tracker Tracker, hasher auth.Hasher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   st,
		tracker: tracker,
		hasher:  hasher,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Snapshot exposes a copy of the current state for read-only projections.
func (s *Service) Snapshot() domain.State {
	return s.store.Snapshot()
}

func (s *Service) Now() time.Time {
	return s.now().UTC()
}

// AdminAccount describes the member seeded on first run.
type AdminAccount struct {
	Name     string
	Email    string
	Password string
}

// Seed returns the first-run dataset builder for store.WithSeed. The admin
// id and password hash are computed once and reused by every call.
func Seed(hasher auth.Hasher, admin AdminAccount, logger *zap.Logger) func() domain.State {
	var (
		once   sync.Once
		member domain.Member
	)
	return func() domain.State {
		once.Do(func() {
			member = domain.Member{
				ID:       uuid.NewString(),
				Name:     admin.Name,
				Email:    admin.Email,
				Role:     AdminRole,
				Team:     AdminTeam,
				JoinedAt: time.Now().UTC(),
			}
			if member.Name == "" {
				member.Name = "Administrator"
			}
			hash, err := hasher.Hash(admin.Password)
			if err != nil && logger != nil {
				logger.Error("hash admin password failed, admin cannot sign in", zap.Error(err))
			}
			member.PasswordHash = hash
		})
		st := domain.NewState()
		st.Members = []domain.Member{member}
		st.Teams = []domain.Team{{Name: AdminTeam, MemberIDs: []string{member.ID}}}
		return st
	}
}

func (s *Service) actor() (string, string) {
	if sess, ok := s.store.Session(); ok {
		return sess.MemberID, sess.Name
	}
	return "", systemActor
}

// record prepends an activity entry; it must run inside a Mutate callback.
func (s *Service) record(st *domain.State, actor, action, detail string) {
	st.Activity = activity.Prepend(st.Activity, domain.Activity{
		ID:     s.newID(),
		Actor:  actor,
		Action: action,
		Detail: detail,
		At:     s.Now(),
	})
}

func (s *Service) ActivityFeed(limit int) []domain.Activity {
	st := s.store.Snapshot()
	return activity.Recent(st.Activity, limit)
}
