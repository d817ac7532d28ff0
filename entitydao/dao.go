package entitydao

import (
	"context"

	"github.com/pkg/errors"

	"github.com/entsession/go-entity-session/cache"
	"github.com/entsession/go-entity-session/identity"
	"github.com/entsession/go-entity-session/query"
	"github.com/entsession/go-entity-session/storage"
)

// DAO orchestrates entity access for one type: it decides when to consult or
// update the identity cache and when to delegate to the storage capability.
// All methods are safe for concurrent use.
type DAO[T any] struct {
	box     storage.Box[T]
	info    storage.EntityInfo[T]
	scope   *identity.Cache[T]
	session *Session
	attach  func(e *T)
	counts  *countCache
}

// Option customizes a DAO at construction time.
type Option[T any] func(*DAO[T])

// WithoutIdentityTracking disables the identity cache: loads and queries
// return the freshly loaded instances unchanged.
func WithoutIdentityTracking[T any]() Option[T] {
	return func(d *DAO[T]) { d.scope = nil }
}

// WithAttach installs a hook invoked on every entity before it enters the
// identity cache, e.g. to wire back-references.
func WithAttach[T any](fn func(e *T)) Option[T] {
	return func(d *DAO[T]) { d.attach = fn }
}

// WithCountCache enables read-through caching of Count results, invalidated
// on every write path of this DAO.
func WithCountCache[T any](service cache.CacheService, serializer cache.KeySerializer) Option[T] {
	return func(d *DAO[T]) {
		d.counts = &countCache{
			service:    service,
			serializer: serializer,
			typeName:   d.info.TypeName(),
		}
	}
}

// New builds a DAO for box with identity tracking enabled.
func New[T any](box storage.Box[T], info storage.EntityInfo[T], opts ...Option[T]) *DAO[T] {
	d := &DAO[T]{
		box:   box,
		info:  info,
		scope: identity.New[T](),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Box returns the raw storage capability, bypassing identity reconciliation.
func (d *DAO[T]) Box() storage.Box[T] { return d.box }

// Info returns the entity type accessors this DAO was built with.
func (d *DAO[T]) Info() storage.EntityInfo[T] { return d.info }

// Session returns the session this DAO is registered with, or nil.
func (d *DAO[T]) Session() *Session { return d.session }

// Load returns the entity for key, or nil if no entity has that key. The
// identity cache is consulted first; a storage hit becomes the canonical
// instance for the key.
func (d *DAO[T]) Load(ctx context.Context, key uint64) (*T, error) {
	if key == 0 {
		return nil, nil
	}
	if d.scope != nil {
		if e := d.scope.Get(key); e != nil {
			return e, nil
		}
	}
	e, err := d.box.Get(ctx, key)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading %s key %d", d.info.TypeName(), key)
	}
	if e == nil {
		return nil, nil
	}
	d.attachEntity(e)
	if d.scope != nil {
		d.scope.Put(key, e)
	}
	return e, nil
}

// LoadAll returns every stored entity, reconciled against the identity cache
// in storage scan order.
func (d *DAO[T]) LoadAll(ctx context.Context) ([]*T, error) {
	list, err := d.box.GetAll(ctx)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading all %s", d.info.TypeName())
	}
	return d.reconcileAll(list)
}

// Put persists the entity and returns the key storage assigned. There is no
// insert/update distinction; storage always assigns (or keeps) the key. The
// instance becomes the canonical one for that key.
func (d *DAO[T]) Put(ctx context.Context, e *T) (uint64, error) {
	if e == nil {
		return 0, errors.WithStack(storage.ErrNilEntity)
	}
	key, err := d.box.Put(ctx, e)
	if err != nil {
		return 0, errors.WithMessagef(err, "putting %s", d.info.TypeName())
	}
	d.attachEntity(e)
	if d.scope != nil {
		d.scope.Put(key, e)
	}
	d.invalidateCounts(ctx)
	return key, nil
}

// PutAll persists the entities in one storage transaction and one identity
// cache critical section. The cache is only updated after storage confirms
// the whole batch.
func (d *DAO[T]) PutAll(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	if d.scope != nil {
		d.scope.Lock()
		defer d.scope.Unlock()
	}

	keys := make([]uint64, 0, len(entities))
	err := d.box.RunInTx(ctx, func(ctx context.Context) error {
		keys = keys[:0]
		for _, e := range entities {
			if e == nil {
				return errors.WithStack(storage.ErrNilEntity)
			}
			key, err := d.box.Put(ctx, e)
			if err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return errors.WithMessagef(err, "putting %d %s entities", len(entities), d.info.TypeName())
	}

	if d.scope != nil {
		d.scope.ReserveRoom(len(entities))
		for i, e := range entities {
			d.attachEntity(e)
			d.scope.PutLocked(keys[i], e)
		}
	} else {
		for _, e := range entities {
			d.attachEntity(e)
		}
	}
	d.invalidateCounts(ctx)
	return nil
}

// Delete removes the entity from storage and evicts its key from the
// identity cache.
func (d *DAO[T]) Delete(ctx context.Context, e *T) error {
	key, err := d.keyVerified(e)
	if err != nil {
		return err
	}
	return d.DeleteByKey(ctx, key)
}

// DeleteByKey removes the entity stored under key and evicts the key from
// the identity cache.
func (d *DAO[T]) DeleteByKey(ctx context.Context, key uint64) error {
	if key == 0 {
		return errors.WithStack(storage.ErrNoKey)
	}
	if err := d.box.Remove(ctx, key); err != nil {
		return errors.WithMessagef(err, "deleting %s key %d", d.info.TypeName(), key)
	}
	if d.scope != nil {
		d.scope.Remove(key)
	}
	d.invalidateCounts(ctx)
	return nil
}

// DeleteMany removes the entities in one storage transaction, holding the
// identity cache lock across it; their keys are evicted once storage has
// confirmed.
func (d *DAO[T]) DeleteMany(ctx context.Context, entities []*T) error {
	keys := make([]uint64, 0, len(entities))
	for _, e := range entities {
		key, err := d.keyVerified(e)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	return d.DeleteByKeys(ctx, keys)
}

// DeleteByKeys removes all given keys in one storage transaction, holding
// the identity cache lock across it.
func (d *DAO[T]) DeleteByKeys(ctx context.Context, keys []uint64) error {
	if len(keys) == 0 {
		return nil
	}
	if d.scope != nil {
		d.scope.Lock()
	}
	err := d.box.RemoveKeys(ctx, keys)
	if d.scope != nil {
		d.scope.Unlock()
	}
	if err != nil {
		return errors.WithMessagef(err, "deleting %d %s keys", len(keys), d.info.TypeName())
	}
	if d.scope != nil {
		d.scope.RemoveKeys(keys)
	}
	d.invalidateCounts(ctx)
	return nil
}

// DeleteAll removes every entity of this type and clears the identity cache.
func (d *DAO[T]) DeleteAll(ctx context.Context) error {
	if err := d.box.RemoveAll(ctx); err != nil {
		return errors.WithMessagef(err, "deleting all %s", d.info.TypeName())
	}
	if d.scope != nil {
		d.scope.Clear()
	}
	d.invalidateCounts(ctx)
	return nil
}

// Refresh re-reads the entity's row and copies the fresh field values into
// the given instance in place, keeping its identity. Fails with
// storage.ErrNotFound when the key no longer exists.
func (d *DAO[T]) Refresh(ctx context.Context, e *T) error {
	key, err := d.keyVerified(e)
	if err != nil {
		return err
	}
	fresh, err := d.box.Get(ctx, key)
	if err != nil {
		return errors.WithMessagef(err, "refreshing %s key %d", d.info.TypeName(), key)
	}
	if fresh == nil {
		return errors.Wrapf(storage.ErrNotFound, "refreshing %s key %d", d.info.TypeName(), key)
	}
	d.info.CopyFields(fresh, e)
	d.attachEntity(e)
	if d.scope != nil {
		d.scope.Put(key, e)
	}
	return nil
}

// Detach removes the entity from the identity cache, so subsequent loads and
// query results return a distinct instance. Storage is untouched. Reports
// whether the entity actually was the cached instance for its key.
func (d *DAO[T]) Detach(e *T) (bool, error) {
	key, err := d.keyVerified(e)
	if err != nil {
		return false, err
	}
	if d.scope == nil {
		return false, nil
	}
	return d.scope.Detach(key, e), nil
}

// DetachAll clears the identity cache for this type. Storage is untouched.
func (d *DAO[T]) DetachAll() {
	if d.scope != nil {
		d.scope.Clear()
	}
}

// Count returns the number of stored entities, via the count cache when one
// is configured.
func (d *DAO[T]) Count(ctx context.Context) (int64, error) {
	if d.counts != nil {
		return d.counts.count(ctx, func(ctx context.Context) (int64, error) {
			return d.box.Count(ctx)
		})
	}
	return d.box.Count(ctx)
}

// Query starts a query builder whose results flow through this DAO's
// identity reconciliation.
func (d *DAO[T]) Query() *query.Builder[T] {
	return query.NewBuilder(d.box, query.Hooks[T]{
		ReconcileAll: d.reconcileAll,
		ReconcileOne: d.reconcileOne,
		EvictKeys:    d.evictKeys,
	})
}

func (d *DAO[T]) attachEntity(e *T) {
	if d.attach != nil {
		d.attach(e)
	}
}

func (d *DAO[T]) evictKeys(keys []uint64) {
	if d.scope != nil {
		d.scope.RemoveKeys(keys)
	}
	d.invalidateCounts(context.Background())
}

func (d *DAO[T]) invalidateCounts(ctx context.Context) {
	if d.counts != nil {
		d.counts.invalidate(ctx)
	}
}

// keyVerified extracts the entity's key, failing on nil entities and unset
// keys. Callers must exclude both before reaching storage.
func (d *DAO[T]) keyVerified(e *T) (uint64, error) {
	if e == nil {
		return 0, errors.WithStack(storage.ErrNilEntity)
	}
	key := d.info.KeyOf(e)
	if key == 0 {
		return 0, errors.WithStack(storage.ErrNoKey)
	}
	return key, nil
}
