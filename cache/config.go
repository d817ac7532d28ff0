package cache

import (
	"time"

	"github.com/entsession/go-entity-session/internal/cacheinfra"
)

// Config exposes the cache configuration consumers tune. Values map onto the
// underlying sturdyc client.
type Config struct {
	// Capacity is the maximum number of cached entries.
	Capacity int
	// NumShards spreads entries across shards for concurrent access.
	NumShards int
	// TTL is how long a cached entry stays usable.
	TTL time.Duration
	// EvictionPercentage is the share of entries dropped when the cache is
	// full, between 1 and 100.
	EvictionPercentage int
	// EvictionInterval overrides how often expired entries are collected.
	// Zero keeps the client default.
	EvictionInterval time.Duration
}

// DefaultConfig returns the defaults used by pkg/di when no configuration is
// supplied.
func DefaultConfig() Config {
	return fromInternal(cacheinfra.DefaultConfig())
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the default CacheService implementation.
func NewCacheService(cfg Config) (CacheService, error) {
	return cacheinfra.New(cfg.toInternal())
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func fromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
