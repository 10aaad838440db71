package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cyp0633/calseries/server/storage"
	"github.com/cyp0633/calseries/server/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "data", "calseries.db")

	s, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "eventSeries/s1", map[string]any{"name": "Gym"}))
	require.NoError(t, s.Close())

	s, err = New(dbPath)
	require.NoError(t, err)
	defer s.Close()

	var got map[string]string
	ok, err := storage.GetInto(ctx, s, "eventSeries/s1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Gym", got["name"])
}

func TestStore_UpdateIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "keep", 1))

	ctxCancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := s.Update(ctxCancelled, "", map[string]any{"keep": nil, "other": 2})
	require.Error(t, err)

	v, err := s.Get(ctx, "keep")
	require.NoError(t, err)
	assert.True(t, v.IsPresent())
}

func TestSubtreeClause(t *testing.T) {
	where, args := subtreeClause("")
	assert.Equal(t, "1 = 1", where)
	assert.Empty(t, args)

	_, args = subtreeClause("events/e1")
	assert.Equal(t, []any{"events/e1", "events/e1/", "events/e10"}, args)
}
