package query

import (
	"context"

	"github.com/pkg/errors"

	"github.com/entsession/go-entity-session/storage"
)

// Query is one executable instance of a template, wrapping a native query
// handle bound to the goroutine that created it. Parameters and the result
// window are mutable per instance, which is exactly why instances are never
// shared: every method checks ownership and fails with ErrOwnership when
// called from another goroutine.
type Query[T any] struct {
	tpl    *template[T]
	native storage.PreparedQuery[T]
	owner  int64

	conditions []storage.Condition
	limit      *int
	offset     *int
}

// ForCurrentThread returns the instance owned by the calling goroutine,
// creating it from the shared template on first use. A reused instance has
// its limit/offset reset to the template defaults; parameter values persist
// and must be rebound by the caller if they are stale.
func (q *Query[T]) ForCurrentThread() (*Query[T], error) {
	return q.tpl.forCurrentThread()
}

// SetParam rebinds the parameter value(s) of the condition at index, the
// 0-based position at which the condition was added during building. The
// value count must match the condition's operator (two for Between, one
// otherwise).
func (q *Query[T]) SetParam(index int, values ...any) error {
	if err := q.checkOwner(); err != nil {
		return err
	}
	if index < 0 || index >= len(q.conditions) {
		return errors.Wrapf(ErrParamIndex, "index %d, %d conditions", index, len(q.conditions))
	}
	cond := &q.conditions[index]
	if len(values) != cond.Op.ParamCount() {
		return errors.Wrapf(ErrParamCount, "%s takes %d value(s), got %d", cond.Op, cond.Op.ParamCount(), len(values))
	}
	cond.Value = values[0]
	if len(values) > 1 {
		cond.Value2 = values[1]
	}
	return q.native.SetParam(index, values...)
}

// SetLimit overrides the result limit for this instance until the next
// ForCurrentThread acquisition.
func (q *Query[T]) SetLimit(n int) error {
	if err := q.checkOwner(); err != nil {
		return err
	}
	q.limit = &n
	return nil
}

// SetOffset overrides the result offset for this instance until the next
// ForCurrentThread acquisition. Only honored together with a limit.
func (q *Query[T]) SetOffset(n int) error {
	if err := q.checkOwner(); err != nil {
		return err
	}
	q.offset = &n
	return nil
}

// Find executes the query and returns all matches, reconciled against the
// owning orchestrator's identity cache.
func (q *Query[T]) Find(ctx context.Context) ([]*T, error) {
	if err := q.checkOwner(); err != nil {
		return nil, err
	}
	list, err := q.native.Find(ctx, q.window())
	if err != nil {
		return nil, err
	}
	if q.tpl.hooks.ReconcileAll != nil {
		return q.tpl.hooks.ReconcileAll(list)
	}
	return list, nil
}

// List is an alias for Find.
func (q *Query[T]) List(ctx context.Context) ([]*T, error) {
	return q.Find(ctx)
}

// FindFirst returns the first match or nil.
func (q *Query[T]) FindFirst(ctx context.Context) (*T, error) {
	if err := q.checkOwner(); err != nil {
		return nil, err
	}
	e, err := q.native.FindFirst(ctx)
	if err != nil {
		return nil, err
	}
	return q.reconcileOne(e), nil
}

// FindUnique returns the single match, nil when nothing matches, and
// storage.ErrNonUnique when more than one row matches.
func (q *Query[T]) FindUnique(ctx context.Context) (*T, error) {
	if err := q.checkOwner(); err != nil {
		return nil, err
	}
	e, err := q.native.FindUnique(ctx)
	if err != nil {
		return nil, err
	}
	return q.reconcileOne(e), nil
}

// Unique is an alias for FindUnique.
func (q *Query[T]) Unique(ctx context.Context) (*T, error) {
	return q.FindUnique(ctx)
}

// UniqueOrErr is FindUnique that fails with storage.ErrNotFound when nothing
// matches.
func (q *Query[T]) UniqueOrErr(ctx context.Context) (*T, error) {
	e, err := q.FindUnique(ctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.Wrap(storage.ErrNotFound, "no entity matched the query")
	}
	return e, nil
}

// Count returns the number of matching rows.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	if err := q.checkOwner(); err != nil {
		return 0, err
	}
	return q.native.Count(ctx)
}

// Remove deletes all rows currently matching the bound predicate, evicts
// their keys from the identity cache, and returns the number removed.
func (q *Query[T]) Remove(ctx context.Context) (int64, error) {
	if err := q.checkOwner(); err != nil {
		return 0, err
	}
	keys, err := q.native.Remove(ctx)
	if err != nil {
		return 0, err
	}
	if q.tpl.hooks.EvictKeys != nil {
		q.tpl.hooks.EvictKeys(keys)
	}
	return int64(len(keys)), nil
}

func (q *Query[T]) reconcileOne(e *T) *T {
	if e == nil || q.tpl.hooks.ReconcileOne == nil {
		return e
	}
	return q.tpl.hooks.ReconcileOne(e)
}

// window derives the effective result window: unwindowed when neither limit
// nor offset is set, otherwise both clamped to non-negative values with a
// zero limit meaning unlimited.
func (q *Query[T]) window() storage.Window {
	if q.limit == nil && q.offset == nil {
		return storage.Window{}
	}
	w := storage.Window{Windowed: true}
	if q.limit != nil && *q.limit > 0 {
		w.Limit = *q.limit
	}
	if q.offset != nil && *q.offset > 0 {
		w.Offset = *q.offset
	}
	return w
}

func (q *Query[T]) checkOwner() error {
	if goid() != q.owner {
		return errors.WithMessage(ErrOwnership, "goroutine mismatch")
	}
	return nil
}
