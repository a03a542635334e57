package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/bubelovv/team-tracker/internal/store"
	"github.com/stretchr/testify/require"
)

func TestReadMissingKey(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = p.Read(context.Background(), store.StateKey)
	require.ErrorIs(t, err, store.ErrNoValue)
}

func TestWriteReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, p.Write(ctx, "k", []byte(`{"v":1}`)))
	require.NoError(t, p.Write(ctx, "k", []byte(`{"v":2}`)))

	got, err := p.Read(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":2}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, p.Write(ctx, "k", []byte("x")))
	require.NoError(t, p.Delete(ctx, "k"))
	require.NoError(t, p.Delete(ctx, "k"))
}

func TestKeysCannotEscapeDataDir(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)

	require.Equal(t, dir, filepath.Dir(p.path("../../etc/passwd")))
}

func TestStoreOverFilePersister(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.StateKey+".json"), []byte("garbage"), 0o600))

	s := store.New(p, nil)
	s.Load(ctx)
	require.NoError(t, s.Mutate(ctx, func(st *domain.State) error {
		st.Tasks = append(st.Tasks, domain.Task{ID: "t1", Title: "X", Team: "TDM", Status: domain.TaskStatusNotStarted, Priority: domain.PriorityMedium})
		return nil
	}))

	reloaded := store.New(p, nil)
	reloaded.Load(ctx)
	require.Len(t, reloaded.Snapshot().Tasks, 1)
}
