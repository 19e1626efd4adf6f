package repository_test

import (
	"testing"
	"time"

	"tenantsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	now := epoch
	cache := repository.NewMemoryCache(func() time.Time { return now })

	require.NoError(t, cache.Set(ctx, "sync:status:all:24", []byte("a"), time.Minute))
	require.NoError(t, cache.Set(ctx, "sync:status:1:24", []byte("b"), time.Minute))
	require.NoError(t, cache.Set(ctx, "other:key", []byte("c"), time.Minute))

	val, ok, err := cache.Get(ctx, "sync:status:all:24")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), val)

	deleted, err := cache.DeletePrefix(ctx, repository.SyncCachePrefix)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, ok, err = cache.Get(ctx, "sync:status:1:24")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.Get(ctx, "other:key")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "other:key")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are not returned")
}
