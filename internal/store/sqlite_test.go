package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

func TestSQLiteStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	v, err := s.Get(ctx, "joltcab_token")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.Set(ctx, "joltcab_token", "first"))
	require.NoError(t, s.Set(ctx, "joltcab_token", "second"))

	v, err = s.Get(ctx, "joltcab_token")
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	require.NoError(t, s.Delete(ctx, "joltcab_token"))
	require.NoError(t, s.Delete(ctx, "joltcab_token"))

	v, err = s.Get(ctx, "joltcab_token")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSQLiteStoreKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Set(ctx, "a", "1"))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "joltcab.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "joltcab_token", "persisted"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, "joltcab_token")
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, "k", "v"))
	v, _ := m.Get(ctx, "k")
	assert.Equal(t, "v", v)

	require.NoError(t, m.Delete(ctx, "k"))
	keys, _ := m.Keys(ctx)
	assert.Empty(t, keys)
}
