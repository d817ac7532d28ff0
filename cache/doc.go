// Package cache provides the read-through result cache the DAO layer uses
// for derived query results such as counts.
//
// It is strictly separate from the identity cache: entity instances are never
// stored here, only derived values keyed by a deterministic serialization of
// the request. Entries expire and are evicted; correctness never depends on a
// hit.
//
// The default implementation is backed by sturdyc (internal/cacheinfra);
// alternate backends only need to satisfy CacheService.
package cache
