// Package cacheinfra adapts the sturdyc in-memory cache to the CacheService
// contract the cache package exports.
package cacheinfra

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the knobs passed through to the sturdyc client.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns settings suitable for a session-scoped result cache.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate reports whether the configuration can back a sturdyc client.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

// Service implements cache.CacheService on a sturdyc client.
type Service struct {
	client *sturdyc.Client[any]
}

// New validates cfg and builds the sturdyc-backed service.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	client := sturdyc.New[any](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, opts...)
	return &Service{client: client}, nil
}

// GetOrFetch returns the cached value for key, fetching and storing it on a
// miss or after expiry.
func (s *Service) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	return s.client.GetOrFetch(ctx, key, fetch)
}

// Delete drops the entry for key so the next read fetches fresh data.
func (s *Service) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}
