package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bubelovv/team-tracker/internal/auth"
	"github.com/bubelovv/team-tracker/internal/domain"
	"go.uber.org/zap"
)

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup registers a member with the default role and team and signs them in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (domain.Session, error) {
	var fields domain.Fields
	fields.Require("name", in.Name)
	fields.Require("email", in.Email)
	fields.Require("password", in.Password)
	if err := fields.Err(); err != nil {
		return domain.Session{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.Session{}, err
	}
	member := domain.Member{
		ID:           s.newID(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Role:         DefaultRole,
		Team:         DefaultTeam,
		PasswordHash: hash,
		JoinedAt:     s.Now(),
	}

	err = s.store.Mutate(ctx, func(st *domain.State) error {
		if st.MemberByEmail(member.Email) >= 0 {
			return domain.ErrEmailTaken
		}
		st.Members = append(st.Members, member)
		joinTeam(st, member.Team, member.ID)
		s.record(st, member.Name, "signed up", member.Email)
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return s.startSession(ctx, member), nil
}

// Login matches the email exactly and verifies the password hash.
func (s *Service) Login(ctx context.Context, email, password string) (domain.Session, error) {
	var fields domain.Fields
	fields.Require("email", email)
	fields.Require("password", password)
	if err := fields.Err(); err != nil {
		return domain.Session{}, err
	}

	st := s.store.Snapshot()
	var member *domain.Member
	for i := range st.Members {
		if st.Members[i].Email == strings.TrimSpace(email) {
			member = &st.Members[i]
			break
		}
	}
	if member == nil {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(member.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrMismatch) {
			s.logger.Error("password verification failed", zap.Error(err))
		}
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	return s.startSession(ctx, *member), nil
}

func (s *Service) Logout(ctx context.Context) {
	s.store.SetSession(ctx, nil)
}

func (s *Service) CurrentSession() (domain.Session, bool) {
	return s.store.Session()
}

func (s *Service) startSession(ctx context.Context, m domain.Member) domain.Session {
	sess := domain.Session{
		MemberID:   m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Role:       m.Role,
		LoggedInAt: s.Now(),
	}
	s.store.SetSession(ctx, &sess)
	return sess
}
