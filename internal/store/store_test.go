package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/stretchr/testify/require"
)

type failingPersister struct {
	readErr  error
	writeErr error
	writes   int
}

func (f *failingPersister) Read(context.Context, string) ([]byte, error) { return nil, f.readErr }
func (f *failingPersister) Write(context.Context, string, []byte) error {
	f.writes++
	return f.writeErr
}
func (f *failingPersister) Delete(context.Context, string) error { return nil }

func seedWithAdmin() domain.State {
	st := domain.NewState()
	st.Members = []domain.Member{{ID: "admin", Name: "Admin", Email: "admin@example.com", Role: "Admin", Team: "Management"}}
	return st
}

func TestLoadSeedsAndPersistsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	s := New(p, nil, WithSeed(seedWithAdmin))

	s.Load(ctx)

	st := s.Snapshot()
	require.Len(t, st.Members, 1)
	require.Equal(t, []string{"admin"}, st.Teams[0].MemberIDs)

	raw, err := p.Read(ctx, StateKey)
	require.NoError(t, err)
	var persisted domain.State
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Equal(t, "admin", persisted.Members[0].ID)
}

func TestLoadReseedsCorruptState(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	require.NoError(t, p.Write(ctx, StateKey, []byte(`{"members": "not-a-list"`)))
	s := New(p, nil, WithSeed(seedWithAdmin))

	s.Load(ctx)

	require.Len(t, s.Snapshot().Members, 1)
	raw, err := p.Read(ctx, StateKey)
	require.NoError(t, err)
	require.True(t, json.Valid(raw))
}

func TestLoadMergesPartialSnapshotOntoDefaults(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	require.NoError(t, p.Write(ctx, StateKey, []byte(`{"tasks":[{"id":"t1","title":"X","team":"TDM","status":"todo"}]}`)))
	s := New(p, nil, WithSeed(seedWithAdmin))

	s.Load(ctx)

	st := s.Snapshot()
	require.Len(t, st.Members, 1, "members missing from snapshot keep the seeded default")
	require.Len(t, st.Tasks, 1)
	require.Equal(t, domain.TaskStatusNotStarted, st.Tasks[0].Status)
	require.Equal(t, domain.DefaultRefreshInterval, st.Settings.RefreshIntervalSeconds)
	require.NotNil(t, st.Retro)
	require.NotNil(t, st.Activity)
}

func TestLoadReadFailureKeepsBackendUntouched(t *testing.T) {
	p := &failingPersister{readErr: errors.New("connection refused")}
	s := New(p, nil, WithSeed(seedWithAdmin))

	s.Load(context.Background())

	require.Len(t, s.Snapshot().Members, 1)
	require.Zero(t, p.writes)
}

func TestMutateDiscardsChangesOnError(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryPersister(), nil)
	s.Load(ctx)

	err := s.Mutate(ctx, func(st *domain.State) error {
		st.Tasks = append(st.Tasks, domain.Task{ID: "t1"})
		return domain.ErrTaskNotFound
	})

	require.ErrorIs(t, err, domain.ErrTaskNotFound)
	require.Empty(t, s.Snapshot().Tasks)
}

func TestMutateSurvivesWriteFailure(t *testing.T) {
	ctx := context.Background()
	p := &failingPersister{readErr: ErrNoValue, writeErr: errors.New("disk full")}
	s := New(p, nil)
	s.Load(ctx)

	err := s.Mutate(ctx, func(st *domain.State) error {
		st.Tasks = append(st.Tasks, domain.Task{ID: "t1"})
		return nil
	})

	require.NoError(t, err)
	require.Len(t, s.Snapshot().Tasks, 1)
}

func TestSnapshotRoundTripsThroughReload(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	s := New(p, nil, WithSeed(seedWithAdmin))
	s.Load(ctx)
	require.NoError(t, s.Mutate(ctx, func(st *domain.State) error {
		st.Tasks = append(st.Tasks, domain.Task{ID: "t1", Title: "X", Team: "TDM", Status: domain.TaskStatusDone, Priority: domain.PriorityHigh})
		return nil
	}))

	reloaded := New(p, nil, WithSeed(domain.NewState))
	reloaded.Load(ctx)

	require.Equal(t, s.Snapshot(), reloaded.Snapshot())
}

func TestLoadKeepsSeededFieldsOutOfPersistedMembers(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	require.NoError(t, p.Write(ctx, StateKey, []byte(`{"members":[{"id":"bob","name":"Bob","email":"bob@x.com","role":"Developer","team":"TDM"}]}`)))
	s := New(p, nil, WithSeed(func() domain.State {
		st := seedWithAdmin()
		st.Members[0].PasswordHash = "admin-hash"
		return st
	}))

	s.Load(ctx)

	st := s.Snapshot()
	require.Len(t, st.Members, 1)
	require.Equal(t, "bob", st.Members[0].ID)
	require.Empty(t, st.Members[0].PasswordHash)
	require.Equal(t, "Bob", st.Members[0].Name)
}

func TestLoadTreatsNullCollectionsAsAbsent(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	require.NoError(t, p.Write(ctx, StateKey, []byte(`{"members":null,"settings":{"theme":"dark"}}`)))
	s := New(p, nil, WithSeed(seedWithAdmin))

	s.Load(ctx)

	st := s.Snapshot()
	require.Len(t, st.Members, 1)
	require.Equal(t, "dark", st.Settings.Theme)
	require.Equal(t, domain.DefaultRefreshInterval, st.Settings.RefreshIntervalSeconds)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	s := New(p, nil, WithSeed(seedWithAdmin))
	s.Load(ctx)

	_, ok := s.Session()
	require.False(t, ok)

	s.SetSession(ctx, &domain.Session{MemberID: "admin", Name: "Admin"})

	reloaded := New(p, nil, WithSeed(seedWithAdmin))
	reloaded.Load(ctx)
	sess, ok := reloaded.Session()
	require.True(t, ok)
	require.Equal(t, "admin", sess.MemberID)

	reloaded.SetSession(ctx, nil)
	_, err := p.Read(ctx, SessionKey)
	require.ErrorIs(t, err, ErrNoValue)
}

func TestLoadDropsDanglingSession(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	require.NoError(t, p.Write(ctx, SessionKey, []byte(`{"member_id":"ghost"}`)))
	s := New(p, nil, WithSeed(seedWithAdmin))

	s.Load(ctx)

	_, ok := s.Session()
	require.False(t, ok)
	_, err := p.Read(ctx, SessionKey)
	require.ErrorIs(t, err, ErrNoValue)
}
