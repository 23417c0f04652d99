package testutil

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
)

// StorageSuite runs the behaviour every core.Storage must share against `s`, which must be empty.
func StorageSuite(t *testing.T, s core.Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "access_token")
	assert.True(t, errors.Is(err, core.ErrStorageKeyNotFound), "Get() of a missing key: %v", err)

	require.NoError(t, s.Set(ctx, "access_token", "a"))
	require.NoError(t, s.Set(ctx, "refresh_token", "r"))
	require.NoError(t, s.Set(ctx, "user", `{"id":1}`))
	require.NoError(t, s.Set(ctx, "access_token", "b"))

	val, err := s.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "b", val)

	require.NoError(t, s.Set(ctx, "empty", ""))
	val, err = s.Get(ctx, "empty")
	require.NoError(t, err, "an empty value is still a value")
	assert.Equal(t, "", val)

	require.NoError(t, s.Delete(ctx, "access_token", "refresh_token", "never-set"))
	for _, key := range []string{"access_token", "refresh_token"} {
		_, err = s.Get(ctx, key)
		assert.True(t, errors.Is(err, core.ErrStorageKeyNotFound), "Get(%s) after Delete(): %v", key, err)
	}
	val, err = s.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, val)

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Delete(ctx, "user", "empty"))
}
