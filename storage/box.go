package storage

import "context"

// TxRunner scopes a function to one storage write transaction. Nested calls
// must join the transaction already carried by the context rather than open a
// second one.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PreparedQuery is one native query handle built from a QuerySpec. Handles
// are mutable (parameter values) and therefore never shared between
// goroutines; the query layer above enforces that.
type PreparedQuery[T any] interface {
	// SetParam rebinds the parameter value(s) of the condition at the given
	// position. The caller has already validated index and value count.
	SetParam(index int, values ...any) error

	// Find returns all matching entities in storage order, honoring w.
	Find(ctx context.Context, w Window) ([]*T, error)

	// FindFirst returns the first match, or nil if there is none.
	FindFirst(ctx context.Context) (*T, error)

	// FindUnique returns the single match, nil if there is none, and
	// ErrNonUnique if there is more than one.
	FindUnique(ctx context.Context) (*T, error)

	// Count returns the number of matching entities.
	Count(ctx context.Context) (int64, error)

	// Remove deletes all matching entities and returns their keys.
	Remove(ctx context.Context) ([]uint64, error)
}

// Box is the persistence capability for one entity type. The session core
// treats it as opaque: keys are assigned by the box on put, Get returns nil
// for absent keys, and failures propagate to the caller unchanged.
type Box[T any] interface {
	TxRunner

	// Get returns the entity stored under key, or nil if absent.
	Get(ctx context.Context, key uint64) (*T, error)

	// GetAll returns every stored entity in storage scan order.
	GetAll(ctx context.Context) ([]*T, error)

	// Put persists the entity, assigning a key if it has none, and returns
	// the key the entity is stored under.
	Put(ctx context.Context, e *T) (uint64, error)

	// Remove deletes the entity stored under key. Removing an absent key is
	// not an error.
	Remove(ctx context.Context, key uint64) error

	// RemoveKeys deletes all given keys in one transaction.
	RemoveKeys(ctx context.Context, keys []uint64) error

	// RemoveAll deletes every entity of this type.
	RemoveAll(ctx context.Context) error

	// Count returns the number of stored entities.
	Count(ctx context.Context) (int64, error)

	// Prepare builds a native query handle from the spec. The spec is not
	// retained; the handle owns its own copy of the condition values.
	Prepare(spec QuerySpec) (PreparedQuery[T], error)
}
