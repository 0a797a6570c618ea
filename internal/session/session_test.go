package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joltcab/console/internal/store"
	"github.com/joltcab/console/internal/testutil"
)

func TestSetAndClearToken(t *testing.T) {
	ctx := context.Background()
	durable := store.NewMemoryStore()
	s := New(durable)

	assert.False(t, s.Authenticated())

	require.NoError(t, s.SetToken(ctx, "tok-1"))
	assert.Equal(t, "tok-1", s.Token())
	persisted, _ := durable.Get(ctx, TokenKey)
	assert.Equal(t, "tok-1", persisted)

	require.NoError(t, s.ClearToken(ctx))
	assert.Empty(t, s.Token())
	persisted, _ = durable.Get(ctx, TokenKey)
	assert.Empty(t, persisted)
}

func TestLoadRestoresPersistedToken(t *testing.T) {
	ctx := context.Background()
	durable := store.NewMemoryStore()
	require.NoError(t, durable.Set(ctx, TokenKey, "from-last-run"))

	s := New(durable)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, "from-last-run", s.Token())
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := New(nil)
	b := New(nil)

	require.NoError(t, a.SetToken(ctx, "a"))
	assert.Empty(t, b.Token())
}

func TestTokenSurvivesRestartOnSQLite(t *testing.T) {
	ctx := context.Background()
	durable := testutil.NewTestStore(t)

	first := New(durable)
	require.NoError(t, first.SetToken(ctx, "tok-sqlite"))

	second := New(durable)
	require.NoError(t, second.Load(ctx))
	assert.Equal(t, "tok-sqlite", second.Token())
	assert.True(t, second.Authenticated())
}

type readOnlyStore struct {
	store.Store
}

func (readOnlyStore) Set(ctx context.Context, key, value string) error {
	return errors.New("disk full")
}

func TestSetTokenKeepsPreviousTokenWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	durable := store.NewMemoryStore()
	require.NoError(t, durable.Set(ctx, TokenKey, "old"))

	s := New(readOnlyStore{Store: durable})
	require.NoError(t, s.Load(ctx))

	err := s.SetToken(ctx, "new")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "old", s.Token())
}
