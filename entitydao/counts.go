package entitydao

import (
	"context"

	"github.com/entsession/go-entity-session/cache"
)

// countCache serves Count through the shared result cache. Every write path
// of the owning DAO invalidates the entry; the next Count repopulates it.
type countCache struct {
	service    cache.CacheService
	serializer cache.KeySerializer
	typeName   string
}

func (c *countCache) key() string {
	return c.serializer.SerializeKey("Count", c.typeName)
}

func (c *countCache) count(ctx context.Context, fetch func(ctx context.Context) (int64, error)) (int64, error) {
	return cache.GetOrFetch(ctx, c.service, c.key(), fetch)
}

func (c *countCache) invalidate(ctx context.Context) {
	_ = c.service.Delete(ctx, c.key())
}
