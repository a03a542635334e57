// Package importer simulates an issue-tracker integration. Calls wait for a
// configurable latency and then return a fixed batch of issues; nothing goes
// over the network.
package importer

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/bubelovv/team-tracker/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

const defaultProjectKey = "TT"

//go:embed batch.yaml
var batchYAML []byte

type issue struct {
	Number         int     `yaml:"number"`
	Title          string  `yaml:"title"`
	Description    string  `yaml:"description"`
	Type           string  `yaml:"type"`
	Priority       string  `yaml:"priority"`
	Status         string  `yaml:"status"`
	EstimatedHours float64 `yaml:"estimated_hours"`
	DueInDays      int     `yaml:"due_in_days"`
	Blocker        string  `yaml:"blocker"`
}

type batchFile struct {
	Issues []issue `yaml:"issues"`
}

type Importer struct {
	latency time.Duration
	issues  []issue
	group   singleflight.Group
	logger  *zap.Logger
	now     func() time.Time
}

func New(latency time.Duration, logger *zap.Logger) (*Importer, error) {
	var batch batchFile
	if err := yaml.Unmarshal(batchYAML, &batch); err != nil {
		return nil, fmt.Errorf("decode import batch: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		latency: latency,
		issues:  batch.Issues,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Fetch returns the tracker's issues as unsaved tasks (no ID, no assignee).
// Concurrent calls for the same tracker and project share one round trip.
func (i *Importer) Fetch(ctx context.Context, cfg domain.TrackerConfig) ([]domain.Task, error) {
	if !cfg.Configured() {
		return nil, domain.ErrNotConfigured
	}
	if err := i.roundTrip(ctx, "fetch", cfg); err != nil {
		return nil, err
	}

	project := projectKey(cfg)
	now := i.now().UTC()
	tasks := make([]domain.Task, 0, len(i.issues))
	for _, is := range i.issues {
		status, ok := domain.ParseTaskStatus(is.Status)
		if !ok {
			status = domain.TaskStatusNotStarted
		}
		priority, ok := domain.ParsePriority(is.Priority)
		if !ok {
			priority = domain.PriorityMedium
		}
		t := domain.Task{
			ExternalID:     fmt.Sprintf("%s-%d", project, is.Number),
			Title:          is.Title,
			Description:    is.Description,
			Type:           is.Type,
			Status:         status,
			Priority:       priority,
			EstimatedHours: is.EstimatedHours,
			Blocker:        is.Blocker,
		}
		if is.DueInDays > 0 {
			due := now.Truncate(24*time.Hour).AddDate(0, 0, is.DueInDays)
			t.DueDate = &due
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// TestConnection succeeds when the configuration is complete.
func (i *Importer) TestConnection(ctx context.Context, cfg domain.TrackerConfig) error {
	if !cfg.Configured() {
		return domain.ErrNotConfigured
	}
	return i.roundTrip(ctx, "test", cfg)
}

func (i *Importer) roundTrip(ctx context.Context, op string, cfg domain.TrackerConfig) error {
	key := op + "|" + strings.TrimRight(cfg.BaseURL, "/") + "|" + projectKey(cfg)
	ch := i.group.DoChan(key, func() (any, error) {
		i.logger.Debug("tracker round trip started", zap.String("op", op), zap.String("base_url", cfg.BaseURL))
		if i.latency > 0 {
			time.Sleep(i.latency)
		}
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("tracker %s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Shared {
			i.logger.Debug("tracker round trip shared", zap.String("op", op))
		}
		return res.Err
	}
}

func projectKey(cfg domain.TrackerConfig) string {
	if key := strings.TrimSpace(cfg.ProjectKey); key != "" {
		return strings.ToUpper(key)
	}
	return defaultProjectKey
}
