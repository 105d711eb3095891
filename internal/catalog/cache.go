package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedLookup decorates a Lookup with Redis caching. A nil or unreachable
// client degrades to the underlying lookup.
type CachedLookup struct {
	next   Lookup
	client *redis.Client
	ttl    time.Duration
}

// NewCachedLookup instantiates the caching decorator.
func NewCachedLookup(next Lookup, client *redis.Client, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, client: client, ttl: ttl}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

// Product implements Lookup.
func (c *CachedLookup) Product(ctx context.Context, id int64) (Product, error) {
	if c.client == nil {
		return c.next.Product(ctx, id)
	}

	payload, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var p Product
		if err := json.Unmarshal(payload, &p); err == nil {
			return p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return c.next.Product(ctx, id)
	}

	p, err := c.next.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if raw, err := json.Marshal(p); err == nil {
		_ = c.client.Set(ctx, cacheKey(id), raw, c.ttl).Err()
	}
	return p, nil
}
