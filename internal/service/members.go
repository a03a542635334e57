package service

import (
	"context"
	"strings"

	"github.com/bubelovv/team-tracker/internal/domain"
)

type MemberInput struct {
	Name     string
	Email    string
	Role     string
	Team     string
	Password string
}

func (in MemberInput) validate() error {
	var fields domain.Fields
	fields.Require("name", in.Name)
	fields.Require("email", in.Email)
	fields.Require("role", in.Role)
	fields.Require("team", in.Team)
	if strings.TrimSpace(in.Email) != "" && !strings.Contains(in.Email, "@") {
		fields.Add("email")
	}
	return fields.Err()
}

func (s *Service) ListMembers() []domain.Member {
	return s.store.Snapshot().Members
}

func (s *Service) AddMember(ctx context.Context, in MemberInput) (domain.Member, error) {
	if err := in.validate(); err != nil {
		return domain.Member{}, err
	}

	member := domain.Member{
		ID:       s.newID(),
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Role:     strings.TrimSpace(in.Role),
		Team:     strings.TrimSpace(in.Team),
		JoinedAt: s.Now(),
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return domain.Member{}, err
		}
		member.PasswordHash = hash
	}

	_, actor := s.actor()
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		if st.MemberByEmail(member.Email) >= 0 {
			return domain.ErrEmailTaken
		}
		st.Members = append(st.Members, member)
		joinTeam(st, member.Team, member.ID)
		s.record(st, actor, "added team member", member.Name)
		return nil
	})
	if err != nil {
		return domain.Member{}, err
	}
	return member, nil
}

// UpdateMember edits profile fields. An empty password keeps the current one.
// A rename is propagated to the assignee name of the member's tasks.
func (s *Service) UpdateMember(ctx context.Context, id string, in MemberInput) (domain.Member, error) {
	if err := in.validate(); err != nil {
		return domain.Member{}, err
	}
	var hash string
	if in.Password != "" {
		h, err := s.hasher.Hash(in.Password)
		if err != nil {
			return domain.Member{}, err
		}
		hash = h
	}

	_, actor := s.actor()
	var updated domain.Member
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		idx := st.MemberIndex(id)
		if idx < 0 {
			return domain.ErrMemberNotFound
		}
		if other := st.MemberByEmail(in.Email); other >= 0 && other != idx {
			return domain.ErrEmailTaken
		}

		m := &st.Members[idx]
		oldTeam := m.Team
		m.Name = strings.TrimSpace(in.Name)
		m.Email = strings.TrimSpace(in.Email)
		m.Role = strings.TrimSpace(in.Role)
		m.Team = strings.TrimSpace(in.Team)
		if hash != "" {
			m.PasswordHash = hash
		}
		if oldTeam != m.Team {
			leaveTeam(st, oldTeam, m.ID)
			joinTeam(st, m.Team, m.ID)
		}
		for i := range st.Tasks {
			if st.Tasks[i].AssigneeID == m.ID {
				st.Tasks[i].Assignee = m.Name
			}
		}
		updated = *m
		s.record(st, actor, "updated team member", m.Name)
		return nil
	})
	if err != nil {
		return domain.Member{}, err
	}

	if sess, ok := s.store.Session(); ok && sess.MemberID == id {
		sess.Name, sess.Email, sess.Role = updated.Name, updated.Email, updated.Role
		s.store.SetSession(ctx, &sess)
	}
	return updated, nil
}

// DeleteMember removes a member and its roster entries. Tasks assigned to the
// member keep their assignee id and name. Unknown ids are a no-op and report
// false.
func (s *Service) DeleteMember(ctx context.Context, id string) (bool, error) {
	actorID, actor := s.actor()
	if actorID != "" && actorID == id {
		return false, domain.ErrSelfDelete
	}

	deleted := false
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		idx := st.MemberIndex(id)
		if idx < 0 {
			return nil
		}
		removed := st.Members[idx]
		st.Members = append(st.Members[:idx], st.Members[idx+1:]...)
		for i := range st.Teams {
			st.Teams[i].MemberIDs = without(st.Teams[i].MemberIDs, id)
		}
		s.record(st, actor, "removed team member", removed.Name)
		deleted = true
		return nil
	})
	return deleted, err
}

func (s *Service) ListTeams() []domain.Team {
	return s.store.Snapshot().Teams
}

func (s *Service) AddTeam(ctx context.Context, name string) (domain.Team, error) {
	name = strings.TrimSpace(name)
	var fields domain.Fields
	fields.Require("name", name)
	if err := fields.Err(); err != nil {
		return domain.Team{}, err
	}

	_, actor := s.actor()
	team := domain.Team{Name: name, MemberIDs: []string{}}
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		if st.TeamIndex(name) >= 0 {
			return domain.ErrTeamExists
		}
		st.Teams = append(st.Teams, team)
		s.record(st, actor, "created team", name)
		return nil
	})
	if err != nil {
		return domain.Team{}, err
	}
	return team, nil
}

// DeleteTeam refuses to drop a team that still has members.
func (s *Service) DeleteTeam(ctx context.Context, name string) (bool, error) {
	_, actor := s.actor()
	deleted := false
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		idx := st.TeamIndex(name)
		if idx < 0 {
			return nil
		}
		if len(st.Teams[idx].MemberIDs) > 0 {
			return domain.ErrTeamNotEmpty
		}
		st.Teams = append(st.Teams[:idx], st.Teams[idx+1:]...)
		s.record(st, actor, "deleted team", name)
		deleted = true
		return nil
	})
	return deleted, err
}

func joinTeam(st *domain.State, team, memberID string) {
	idx := st.TeamIndex(team)
	if idx < 0 {
		st.Teams = append(st.Teams, domain.Team{Name: team, MemberIDs: []string{}})
		idx = len(st.Teams) - 1
	}
	for _, id := range st.Teams[idx].MemberIDs {
		if id == memberID {
			return
		}
	}
	st.Teams[idx].MemberIDs = append(st.Teams[idx].MemberIDs, memberID)
}

func leaveTeam(st *domain.State, team, memberID string) {
	if idx := st.TeamIndex(team); idx >= 0 {
		st.Teams[idx].MemberIDs = without(st.Teams[idx].MemberIDs, memberID)
	}
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
