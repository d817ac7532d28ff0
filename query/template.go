package query

import (
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/entsession/go-entity-session/storage"
)

// template is the immutable snapshot a builder produces: the condition and
// ordering sequences, the default result window, and the registry of
// per-goroutine query instances sharing it. Templates are safe to share; the
// instances built from them are not.
type template[T any] struct {
	box   storage.Box[T]
	hooks Hooks[T]

	conditions []storage.Condition
	orders     []storage.Order
	limit      *int
	offset     *int

	instances *xsync.MapOf[int64, *Query[T]]
}

func newInstanceMap[T any]() *xsync.MapOf[int64, *Query[T]] {
	return xsync.NewMapOf[int64, *Query[T]]()
}

// forCurrentThread returns the calling goroutine's instance, creating it on
// first acquisition. A reused instance gets its limit/offset reset to the
// template defaults; bound parameter values are left for the caller to
// (re)set.
func (t *template[T]) forCurrentThread() (*Query[T], error) {
	id := goid()
	if q, ok := t.instances.Load(id); ok {
		q.limit = cloneInt(t.limit)
		q.offset = cloneInt(t.offset)
		return q, nil
	}

	conds := cloneConditions(t.conditions)
	native, err := t.box.Prepare(storage.QuerySpec{Conditions: conds, Orders: t.orders})
	if err != nil {
		return nil, errors.Wrap(err, "preparing native query")
	}

	q := &Query[T]{
		tpl:        t,
		native:     native,
		owner:      id,
		conditions: conds,
		limit:      cloneInt(t.limit),
		offset:     cloneInt(t.offset),
	}
	t.instances.Store(id, q)
	return q, nil
}
