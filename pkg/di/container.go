package di

import (
	"github.com/entsession/go-entity-session/cache"
	"github.com/entsession/go-entity-session/entitydao"
	"github.com/entsession/go-entity-session/storage"
)

// Container provides dependency injection for the session components. It
// manages singleton instances of the session, the result cache service and
// the key serializer, and provides factory functions for building DAOs that
// share them.
type Container struct {
	session       *entitydao.Session
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	config        cache.Config
}

// NewContainer creates a container around the given transaction runner,
// normally a boltstore or bunstore engine, with the provided cache
// configuration.
func NewContainer(tx storage.TxRunner, config cache.Config) (*Container, error) {
	cacheService, err := cache.NewCacheService(config)
	if err != nil {
		return nil, err
	}
	return &Container{
		session:       entitydao.NewSession(tx),
		cacheService:  cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
		config:        config,
	}, nil
}

// NewContainerWithDefaults creates a container using the default cache
// configuration.
func NewContainerWithDefaults(tx storage.TxRunner) (*Container, error) {
	return NewContainer(tx, cache.DefaultConfig())
}

// Session returns the singleton session instance.
func (c *Container) Session() *entitydao.Session {
	return c.session
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// RegisterEntity builds a DAO over box with count caching wired to the
// container's cache service, and registers it with the session.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function. Example: RegisterEntity[User](container, box, info)
func RegisterEntity[T any](c *Container, box storage.Box[T], info storage.EntityInfo[T], opts ...entitydao.Option[T]) *entitydao.DAO[T] {
	opts = append([]entitydao.Option[T]{
		entitydao.WithCountCache[T](c.cacheService, c.keySerializer),
	}, opts...)
	dao := entitydao.New(box, info, opts...)
	entitydao.Register(c.session, dao)
	return dao
}
