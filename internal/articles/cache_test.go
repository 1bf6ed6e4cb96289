package articles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestFetchListPopulatesAndHitsCache(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) ([]Article, error) {
		loads++
		return []Article{{ID: 1, CompanyID: 3, Title: "hello"}}, nil
	}

	first, err := cache.FetchList(ctx, 3, loader)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, loads)

	second, err := cache.FetchList(ctx, 3, loader)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads, "second read must come from the cache")
}

func TestFetchListIsTenantScoped(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, err := cache.FetchList(ctx, 3, func(context.Context) ([]Article, error) {
		return []Article{{ID: 1, CompanyID: 3}}, nil
	})
	require.NoError(t, err)

	other, err := cache.FetchList(ctx, 4, func(context.Context) ([]Article, error) {
		return []Article{{ID: 9, CompanyID: 4}}, nil
	})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, int64(9), other[0].ID)
}

func TestInvalidateDropsListing(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) ([]Article, error) {
		loads++
		return []Article{{ID: 1, CompanyID: 3}}, nil
	}

	_, err := cache.FetchList(ctx, 3, loader)
	require.NoError(t, err)

	cache.Invalidate(ctx, 3)

	_, err = cache.FetchList(ctx, 3, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestFetchListFallsBackWhenRedisDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	got, err := cache.FetchList(context.Background(), 3, func(context.Context) ([]Article, error) {
		return []Article{{ID: 1}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNilCachePassesThrough(t *testing.T) {
	var cache *Cache

	got, err := cache.FetchList(context.Background(), 3, func(context.Context) ([]Article, error) {
		return []Article{{ID: 1}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	cache.Invalidate(context.Background(), 3)
}

func TestFetchListLoaderError(t *testing.T) {
	cache, _ := newTestCache(t)
	wantErr := errors.New("pg down")

	_, err := cache.FetchList(context.Background(), 3, func(context.Context) ([]Article, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}
