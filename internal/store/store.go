package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bubelovv/team-tracker/internal/activity"
	"github.com/bubelovv/team-tracker/internal/domain"
	"go.uber.org/zap"
)

const (
	StateKey   = "teamtracker.state"
	SessionKey = "teamtracker.session"
)

// ErrNoValue is returned by a Persister when nothing is stored under a key.
var ErrNoValue = errors.New("no value stored")

// Persister stores opaque blobs under string keys.
type Persister interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type Option func(*Store)

// WithSeed sets the function producing the first-run dataset. Persisted state
// is decoded on top of its result, so it also supplies defaults for any
// structure missing from an older snapshot.
func WithSeed(seed func() domain.State) Option {
	return func(s *Store) {
		s.seed = seed
	}
}

// Store is the single owner of application state. All reads go through
// Snapshot and all writes through Mutate, both serialized by mu.
type Store struct {
	mu        sync.Mutex
	persister Persister
	logger    *zap.Logger
	seed      func() domain.State

	state   domain.State
	session *domain.Session
}

func New(persister Persister, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		persister: persister,
		logger:    logger,
		seed:      domain.NewState,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.seededState()
	return s
}

// Load replaces in-memory state with the persisted snapshot. It never fails:
// absent or corrupt snapshots are re-seeded and written back, and an
// unreadable backend leaves a seeded in-memory state without overwriting it.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.loadState(ctx)
	s.session = s.loadSession(ctx)
}

func (s *Store) loadState(ctx context.Context) domain.State {
	raw, err := s.persister.Read(ctx, StateKey)
	switch {
	case errors.Is(err, ErrNoValue):
		s.logger.Info("no persisted state, seeding defaults")
		st := s.seededState()
		s.saveLocked(ctx, st)
		return st
	case err != nil:
		s.logger.Error("read persisted state failed, continuing in memory", zap.Error(err))
		return s.seededState()
	}

	st, err := decodeState(raw, s.seed())
	if err != nil {
		s.logger.Warn("persisted state is corrupt, re-seeding", zap.Error(err))
		st = s.seededState()
		s.saveLocked(ctx, st)
		return st
	}
	return st
}

func (s *Store) loadSession(ctx context.Context) *domain.Session {
	raw, err := s.persister.Read(ctx, SessionKey)
	if err != nil {
		if !errors.Is(err, ErrNoValue) {
			s.logger.Error("read session failed", zap.Error(err))
		}
		return nil
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.MemberID == "" {
		s.logger.Warn("persisted session is invalid, discarding")
		s.deleteSessionLocked(ctx)
		return nil
	}
	if s.state.MemberIndex(sess.MemberID) < 0 {
		s.logger.Info("session member no longer exists, discarding", zap.String("member_id", sess.MemberID))
		s.deleteSessionLocked(ctx)
		return nil
	}
	return &sess
}

// decodeState overlays the persisted snapshot on base one top-level key at a
// time. Collections present in the snapshot replace the seeded ones outright,
// so seeded records never bleed into persisted ones. Keys that are absent or
// null keep the seeded value, and settings decode field by field onto their
// defaults.
func decodeState(raw []byte, base domain.State) (domain.State, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.State{}, fmt.Errorf("decode state: %w", err)
	}

	st := base
	steps := []struct {
		key    string
		decode func(json.RawMessage) error
	}{
		{"version", replaceWith(&st.Version)},
		{"members", replaceWith(&st.Members)},
		{"teams", replaceWith(&st.Teams)},
		{"tasks", replaceWith(&st.Tasks)},
		{"retrospective", replaceWith(&st.Retro)},
		{"activity", replaceWith(&st.Activity)},
		{"integrations", overlay(&st.Integrations)},
		{"settings", overlay(&st.Settings)},
	}
	for _, step := range steps {
		msg, ok := doc[step.key]
		if !ok || isNull(msg) {
			continue
		}
		if err := step.decode(msg); err != nil {
			return domain.State{}, fmt.Errorf("decode state %s: %w", step.key, err)
		}
	}

	st.Normalize(activity.Capacity)
	return st, nil
}

// replaceWith decodes into a fresh zero value and then swaps it into dst.
func replaceWith[T any](dst *T) func(json.RawMessage) error {
	return func(msg json.RawMessage) error {
		var v T
		if err := json.Unmarshal(msg, &v); err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// overlay decodes onto the current value of dst, keeping fields the message
// does not mention. Only used for structs without slices of structs.
func overlay[T any](dst *T) func(json.RawMessage) error {
	return func(msg json.RawMessage) error {
		return json.Unmarshal(msg, dst)
	}
}

func isNull(msg json.RawMessage) bool {
	return string(bytes.TrimSpace(msg)) == "null"
}

func (s *Store) seededState() domain.State {
	st := s.seed()
	st.Normalize(activity.Capacity)
	return st
}

// Save writes the full snapshot.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(ctx, s.state)
}

func (s *Store) write(ctx context.Context, st domain.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.persister.Write(ctx, StateKey, data); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (s *Store) saveLocked(ctx context.Context, st domain.State) {
	if err := s.write(ctx, st); err != nil {
		s.logger.Error("persist state failed, continuing in memory", zap.Error(err))
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

// Mutate runs fn against a copy of the state. If fn fails the copy is thrown
// away and state is unchanged; otherwise the copy becomes the state and is
// persisted before Mutate returns. Persistence failures are logged only.
func (s *Store) Mutate(ctx context.Context, fn func(st *domain.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	s.saveLocked(ctx, s.state)
	return nil
}

// Session returns the signed-in identity, if any.
func (s *Store) Session() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return domain.Session{}, false
	}
	return *s.session, true
}

// SetSession persists sess as the signed-in identity; nil signs out.
func (s *Store) SetSession(ctx context.Context, sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess == nil {
		s.session = nil
		s.deleteSessionLocked(ctx)
		return
	}

	cp := *sess
	s.session = &cp
	data, err := json.Marshal(cp)
	if err != nil {
		s.logger.Error("encode session failed", zap.Error(err))
		return
	}
	if err := s.persister.Write(ctx, SessionKey, data); err != nil {
		s.logger.Error("persist session failed, continuing in memory", zap.Error(err))
	}
}

func (s *Store) deleteSessionLocked(ctx context.Context) {
	if err := s.persister.Delete(ctx, SessionKey); err != nil && !errors.Is(err, ErrNoValue) {
		s.logger.Error("delete session failed", zap.Error(err))
	}
}
