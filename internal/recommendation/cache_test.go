package recommendation_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/recommendation"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name     string
		a, b     recommendation.Query
		sameKeys bool
	}{
		{
			name:     "case insensitive",
			a:        recommendation.Query{Location: "Boulder, CO", Limit: 10},
			b:        recommendation.Query{Location: "boulder, co", Limit: 10},
			sameKeys: true,
		},
		{
			name:     "collapsed whitespace",
			a:        recommendation.Query{Location: "  Boulder,   CO ", Limit: 10},
			b:        recommendation.Query{Location: "Boulder, CO", Limit: 10},
			sameKeys: true,
		},
		{
			name:     "limit is part of the key",
			a:        recommendation.Query{Location: "Boulder", Limit: 10},
			b:        recommendation.Query{Location: "Boulder", Limit: 20},
			sameKeys: false,
		},
		{
			name:     "different locations",
			a:        recommendation.Query{Location: "Boulder", Limit: 10},
			b:        recommendation.Query{Location: "Moab", Limit: 10},
			sameKeys: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.sameKeys {
				assert.Equal(t, recommendation.CacheKey(tt.a), recommendation.CacheKey(tt.b))
			} else {
				assert.NotEqual(t, recommendation.CacheKey(tt.a), recommendation.CacheKey(tt.b))
			}
		})
	}
}

// testCacheContract runs behaviour every Cache implementation must share.
func testCacheContract(t *testing.T, cache recommendation.Cache, keyPrefix string) {
	ctx := context.Background()
	fetchedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("miss", func(t *testing.T) {
		_, err := cache.Get(ctx, keyPrefix+"missing")
		assert.ErrorIs(t, err, recommendation.ErrCacheMiss)
	})

	t.Run("set then get", func(t *testing.T) {
		key := keyPrefix + "roundtrip"
		require.NoError(t, cache.Set(ctx, key, &recommendation.Entry{Raw: []byte(`[1]`), FetchedAt: fetchedAt}, time.Minute))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[1]`, string(got.Raw))
		assert.True(t, fetchedAt.Equal(got.FetchedAt))
	})

	t.Run("overwrite", func(t *testing.T) {
		key := keyPrefix + "overwrite"
		require.NoError(t, cache.Set(ctx, key, &recommendation.Entry{Raw: []byte(`[1]`)}, time.Minute))
		require.NoError(t, cache.Set(ctx, key, &recommendation.Entry{Raw: []byte(`[2]`)}, time.Minute))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[2]`, string(got.Raw))
	})

	t.Run("delete", func(t *testing.T) {
		key := keyPrefix + "delete"
		require.NoError(t, cache.Set(ctx, key, &recommendation.Entry{Raw: []byte(`[]`)}, time.Minute))
		require.NoError(t, cache.Delete(ctx, key))

		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, recommendation.ErrCacheMiss)

		assert.NoError(t, cache.Delete(ctx, key), "deleting a missing key is not an error")
	})
}

func TestMemoryCache_Contract(t *testing.T) {
	testCacheContract(t, recommendation.NewMemoryCache(), "")
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := recommendation.NewMemoryCacheWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &recommendation.Entry{Raw: []byte(`[]`)}, time.Minute))
	assert.Equal(t, 1, cache.Len())

	now = now.Add(time.Minute)
	_, err := cache.Get(ctx, "a")
	assert.ErrorIs(t, err, recommendation.ErrCacheMiss)
	assert.Equal(t, 0, cache.Len())

	require.NoError(t, cache.Set(ctx, "b", &recommendation.Entry{Raw: []byte(`[]`)}, time.Minute))
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_CopiesEntries(t *testing.T) {
	cache := recommendation.NewMemoryCache()
	ctx := context.Background()

	raw := []byte(`[1]`)
	require.NoError(t, cache.Set(ctx, "k", &recommendation.Entry{Raw: raw}, time.Minute))
	raw[1] = '9'

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got.Raw))

	got.Raw[1] = '7'
	again, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(again.Raw))
}

func TestRedisCache_Contract(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	client, err := recommendation.ConnectRedis(context.Background(), url)
	require.NoError(t, err)
	defer client.Close()

	cache := recommendation.NewRedisCache(client, "trailhub-test:")
	require.NoError(t, cache.Ping(context.Background()))

	testCacheContract(t, cache, uuid.NewString()+":")
}

func TestConnectRedis_InvalidURL(t *testing.T) {
	_, err := recommendation.ConnectRedis(context.Background(), "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}
