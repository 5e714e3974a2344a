package services

import (
	"context"
	"testing"
	"time"

	localCache "github.com/fernwood-social/fernwood/pkg/internal/cache"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	ristrettoCache "github.com/eko/gocache/store/ristretto/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidateInstanceCacheDropsRegistryEntries(t *testing.T) {
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	require.NoError(t, err)
	localCache.S = ristrettoCache.NewRistretto(inner)

	marshal := marshaler.New(cache.New[any](localCache.S))
	ctx := context.Background()

	seed := models.Instance{Host: "remote.test", LastCommunicatedAt: time.Now()}
	require.NoError(t, marshal.Set(
		ctx,
		GetInstanceCacheKey("remote.test"),
		seed,
		store.WithTags([]string{instancesCacheTag}),
	))
	inner.Wait()

	_, err = marshal.Get(ctx, GetInstanceCacheKey("remote.test"), new(models.Instance))
	require.NoError(t, err)

	// Health writes go through this, so the next read observes fresh fields
	// instead of a stale doc for the rest of the TTL.
	InvalidateInstanceCache()
	inner.Wait()

	_, err = marshal.Get(ctx, GetInstanceCacheKey("remote.test"), new(models.Instance))
	assert.Error(t, err)
}
