package credential

import (
	"context"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyringRoundTrip(t *testing.T) {
	ctx := context.Background()
	k := New(keyring.NewArrayKeyring(nil))

	v, err := k.Get(ctx, "joltcab_token")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, k.Set(ctx, "joltcab_token", "abc"))
	v, err = k.Get(ctx, "joltcab_token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	keys, err := k.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"joltcab_token"}, keys)

	require.NoError(t, k.Delete(ctx, "joltcab_token"))
	require.NoError(t, k.Delete(ctx, "joltcab_token"))

	v, err = k.Get(ctx, "joltcab_token")
	require.NoError(t, err)
	assert.Empty(t, v)
}
