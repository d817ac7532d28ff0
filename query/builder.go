package query

import (
	"context"

	"github.com/entsession/go-entity-session/storage"
)

// Hooks connects executed queries back to the orchestrator owning the entity
// type: results pass through identity reconciliation, and predicate-based
// removal reports the evicted keys. Nil hooks are pass-through, which is what
// an orchestrator without identity tracking installs.
type Hooks[T any] struct {
	ReconcileAll func(list []*T) ([]*T, error)
	ReconcileOne func(e *T) *T
	EvictKeys    func(keys []uint64)
}

// Builder accumulates conditions and orderings for one entity type. Methods
// chain and preserve insertion order; the position at which a condition is
// added is the index used to rebind its parameters later. Builders are not
// safe for concurrent use; the Query built from one is.
type Builder[T any] struct {
	box   storage.Box[T]
	hooks Hooks[T]

	collation  storage.StringOrder
	conditions []storage.Condition
	orders     []storage.Order
	limit      *int
	offset     *int
}

// NewBuilder returns a builder executing against box. The zero Hooks value is
// valid and leaves results unreconciled.
func NewBuilder[T any](box storage.Box[T], hooks Hooks[T]) *Builder[T] {
	return &Builder[T]{
		box:       box,
		hooks:     hooks,
		collation: storage.StringOrderCaseInsensitive,
	}
}

// StringOrderCollation sets the collation applied to string conditions added
// after this call. Conditions already added keep the collation that was
// active when they were added. The default is case-insensitive.
func (b *Builder[T]) StringOrderCollation(so storage.StringOrder) *Builder[T] {
	b.collation = so
	return b
}

// Where appends the given conditions, combined with logical AND, each tagged
// with the currently active string collation. Only one condition per property
// is supported per template; express further conditions on the same property
// with a new template.
func (b *Builder[T]) Where(conds ...storage.Condition) *Builder[T] {
	for _, c := range conds {
		c.Collation = b.collation
		b.conditions = append(b.conditions, c)
	}
	return b
}

// OrderAsc appends the given properties to the ordering, ascending.
func (b *Builder[T]) OrderAsc(properties ...string) *Builder[T] {
	for _, p := range properties {
		b.orders = append(b.orders, storage.Order{Property: p})
	}
	return b
}

// OrderDesc appends the given properties to the ordering, descending.
func (b *Builder[T]) OrderDesc(properties ...string) *Builder[T] {
	for _, p := range properties {
		b.orders = append(b.orders, storage.Order{Property: p, Descending: true})
	}
	return b
}

// Limit sets the template's default maximum result count.
func (b *Builder[T]) Limit(n int) *Builder[T] {
	b.limit = &n
	return b
}

// Offset sets the template's default result offset. Offset is only honored
// when a limit is also set.
func (b *Builder[T]) Offset(n int) *Builder[T] {
	b.offset = &n
	return b
}

// Build snapshots the accumulated state into an immutable template and
// returns the query instance for the calling goroutine. The returned query
// can be executed repeatedly and handed to other goroutines through
// ForCurrentThread.
func (b *Builder[T]) Build() (*Query[T], error) {
	tpl := &template[T]{
		box:        b.box,
		hooks:      b.hooks,
		conditions: cloneConditions(b.conditions),
		orders:     append([]storage.Order(nil), b.orders...),
		limit:      cloneInt(b.limit),
		offset:     cloneInt(b.offset),
		instances:  newInstanceMap[T](),
	}
	return tpl.forCurrentThread()
}

// List is shorthand for Build followed by Find. Keep the built Query when
// executing more than once.
func (b *Builder[T]) List(ctx context.Context) ([]*T, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return q.Find(ctx)
}

// Unique is shorthand for Build followed by FindUnique.
func (b *Builder[T]) Unique(ctx context.Context) (*T, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return q.FindUnique(ctx)
}

// UniqueOrErr is shorthand for Build followed by UniqueOrErr.
func (b *Builder[T]) UniqueOrErr(ctx context.Context) (*T, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return q.UniqueOrErr(ctx)
}

// Count is shorthand for Build followed by Count.
func (b *Builder[T]) Count(ctx context.Context) (int64, error) {
	q, err := b.Build()
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}

func cloneConditions(conds []storage.Condition) []storage.Condition {
	return append([]storage.Condition(nil), conds...)
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
