package cache

import (
	"context"

	"github.com/pkg/errors"
)

// FetchFn produces a fresh value from the source of truth when the cache has
// no usable entry for a key.
type FetchFn[T any] func(ctx context.Context) (T, error)

// KeySerializer builds a stable cache key from a method name plus arbitrary
// arguments. Implementations must be deterministic across calls so that the
// same logical request always maps to the same key.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// CacheService exposes the read-through operations the DAO layer needs for
// derived query results. It deliberately traffics in any; the typed surface
// is the package-level GetOrFetch wrapper.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error)
	Delete(ctx context.Context, key string) error
}

// GetOrFetch is the type-safe entry point to a CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetch FetchFn[T]) (T, error) {
	v, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, errors.Errorf("cache entry for %q holds %T, not the requested type", key, v)
	}
	return out, nil
}
