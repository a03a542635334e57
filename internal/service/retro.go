package service

import (
	"context"
	"strings"

	"github.com/bubelovv/team-tracker/internal/domain"
)

type RetroInput struct {
	Category string
	Content  string
}

func (in RetroInput) validate() (domain.RetroCategory, error) {
	var fields domain.Fields
	fields.Require("content", in.Content)
	category, ok := domain.ParseRetroCategory(in.Category)
	if !ok {
		fields.Add("category")
	}
	return category, fields.Err()
}

func (s *Service) ListRetro() []domain.RetroEntry {
	return s.store.Snapshot().Retro
}

func (s *Service) AddRetroEntry(ctx context.Context, in RetroInput) (domain.RetroEntry, error) {
	category, err := in.validate()
	if err != nil {
		return domain.RetroEntry{}, err
	}

	_, actor := s.actor()
	now := s.Now()
	entry := domain.RetroEntry{
		ID:        s.newID(),
		Category:  category,
		Content:   strings.TrimSpace(in.Content),
		Author:    actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.Mutate(ctx, func(st *domain.State) error {
		st.Retro = append(st.Retro, entry)
		s.record(st, actor, "added retrospective entry", summarize(entry.Content))
		return nil
	})
	if err != nil {
		return domain.RetroEntry{}, err
	}
	return entry, nil
}

func (s *Service) UpdateRetroEntry(ctx context.Context, id string, in RetroInput) (domain.RetroEntry, error) {
	category, err := in.validate()
	if err != nil {
		return domain.RetroEntry{}, err
	}

	_, actor := s.actor()
	var updated domain.RetroEntry
	err = s.store.Mutate(ctx, func(st *domain.State) error {
		idx := st.RetroIndex(id)
		if idx < 0 {
			return domain.ErrRetroNotFound
		}
		e := &st.Retro[idx]
		e.Category = category
		e.Content = strings.TrimSpace(in.Content)
		e.UpdatedAt = s.Now()
		updated = *e
		s.record(st, actor, "updated retrospective entry", summarize(e.Content))
		return nil
	})
	if err != nil {
		return domain.RetroEntry{}, err
	}
	return updated, nil
}

func (s *Service) DeleteRetroEntry(ctx context.Context, id string) (bool, error) {
	_, actor := s.actor()
	deleted := false
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		idx := st.RetroIndex(id)
		if idx < 0 {
			return nil
		}
		removed := st.Retro[idx]
		st.Retro = append(st.Retro[:idx], st.Retro[idx+1:]...)
		s.record(st, actor, "deleted retrospective entry", summarize(removed.Content))
		deleted = true
		return nil
	})
	return deleted, err
}

func summarize(content string) string {
	const max = 60
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return string(r[:max-3]) + "..."
}
