package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bubelovv/team-tracker/internal/domain"
	"go.uber.org/zap"
)

const minRefreshIntervalSeconds = 10

func (s *Service) Settings() domain.Settings {
	return s.store.Snapshot().Settings
}

func (s *Service) UpdateSettings(ctx context.Context, in domain.Settings) (domain.Settings, error) {
	var fields domain.Fields
	theme := strings.ToLower(strings.TrimSpace(in.Theme))
	if theme != "light" && theme != "dark" {
		fields.Add("theme")
	}
	if in.RefreshIntervalSeconds < minRefreshIntervalSeconds {
		fields.Add("refresh_interval_seconds")
	}
	if err := fields.Err(); err != nil {
		return domain.Settings{}, err
	}
	in.Theme = theme

	_, actor := s.actor()
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		st.Settings = in
		s.record(st, actor, "updated settings", fmt.Sprintf("theme %s, refresh every %ds", in.Theme, in.RefreshIntervalSeconds))
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return in, nil
}

func (s *Service) Integrations() domain.Integrations {
	return s.store.Snapshot().Integrations
}

// UpdateTrackerConfig stores the tracker settings. LastImportAt is managed by
// imports and is never taken from input.
func (s *Service) UpdateTrackerConfig(ctx context.Context, in domain.TrackerConfig) (domain.TrackerConfig, error) {
	_, actor := s.actor()
	var saved domain.TrackerConfig
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		cfg := domain.TrackerConfig{
			BaseURL:      strings.TrimSpace(in.BaseURL),
			Username:     strings.TrimSpace(in.Username),
			APIKey:       strings.TrimSpace(in.APIKey),
			ProjectKey:   strings.TrimSpace(in.ProjectKey),
			LastImportAt: st.Integrations.Tracker.LastImportAt,
		}
		st.Integrations.Tracker = cfg
		saved = cfg
		s.record(st, actor, "updated tracker integration", cfg.BaseURL)
		return nil
	})
	return saved, err
}

func (s *Service) UpdateEmailConfig(ctx context.Context, in domain.EmailConfig) (domain.EmailConfig, error) {
	var fields domain.Fields
	if in.Enabled {
		fields.Require("smtp_host", in.SMTPHost)
		fields.Require("from", in.From)
		if len(in.Recipients) == 0 {
			fields.Add("recipients")
		}
	}
	if in.SMTPPort < 0 || in.SMTPPort > 65535 {
		fields.Add("smtp_port")
	}
	if err := fields.Err(); err != nil {
		return domain.EmailConfig{}, err
	}
	if in.Recipients == nil {
		in.Recipients = []string{}
	}

	_, actor := s.actor()
	err := s.store.Mutate(ctx, func(st *domain.State) error {
		st.Integrations.Email = in
		s.record(st, actor, "updated email integration", in.SMTPHost)
		return nil
	})
	if err != nil {
		return domain.EmailConfig{}, err
	}
	return in, nil
}

func (s *Service) TestTrackerConnection(ctx context.Context) error {
	cfg := s.store.Snapshot().Integrations.Tracker
	return s.tracker.TestConnection(ctx, cfg)
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportTasks pulls the tracker batch and adds every task whose external id
// is not already present, so repeating an import adds nothing.
func (s *Service) ImportTasks(ctx context.Context) (ImportResult, error) {
	cfg := s.store.Snapshot().Integrations.Tracker
	if !cfg.Configured() {
		return ImportResult{}, domain.ErrNotConfigured
	}

	fetched, err := s.tracker.Fetch(ctx, cfg)
	if err != nil {
		return ImportResult{}, err
	}

	_, actor := s.actor()
	now := s.Now()
	var res ImportResult
	err = s.store.Mutate(ctx, func(st *domain.State) error {
		for _, t := range fetched {
			if st.TaskByExternalID(t.ExternalID) >= 0 {
				res.Skipped++
				continue
			}
			t.ID = s.newID()
			t.CreatedAt = now
			t.UpdatedAt = now
			if t.Type == "" {
				t.Type = defaultTaskType
			}
			if t.Team == "" {
				t.Team = DefaultTeam
			}
			if t.Status == domain.TaskStatusDone {
				completed := now
				t.CompletedAt = &completed
			}
			st.Tasks = append(st.Tasks, t)
			res.Imported++
		}
		stamp := now
		st.Integrations.Tracker.LastImportAt = &stamp
		s.record(st, actor, "imported tasks", fmt.Sprintf("%d tasks imported, %d already present", res.Imported, res.Skipped))
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	s.logger.Info("tracker import finished", zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))
	return res, nil
}
