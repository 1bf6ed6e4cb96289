package articles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis based caching for article listings. A nil cache or a nil
// client degrades to pass-through loads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func listKey(companyID int64) string {
	return fmt.Sprintf("articles:list:%d", companyID)
}

// FetchList loads the cached listing for a company or populates it with the
// loader. Cache errors fall back to the loader; the cache is an optimization,
// never a source of truth.
func (c *Cache) FetchList(ctx context.Context, companyID int64, loader func(context.Context) ([]Article, error)) ([]Article, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key := listKey(companyID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []Article
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}

	articles, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(articles); err == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return articles, nil
}

// Invalidate drops the cached listing for a company after a write.
func (c *Cache) Invalidate(ctx context.Context, companyID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, listKey(companyID)).Err()
}
