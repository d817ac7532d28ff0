package boltstore

import (
	"context"
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"github.com/entsession/go-entity-session/storage"
)

// preparedQuery scans the box's bucket and evaluates the predicate per
// entity. The query layer above guarantees single-goroutine use.
type preparedQuery[T any] struct {
	box     *Box[T]
	matcher *matcher[T]
	orders  []storage.Order
}

func (q *preparedQuery[T]) SetParam(index int, values ...any) error {
	return q.matcher.setParam(index, values...)
}

func (q *preparedQuery[T]) Find(ctx context.Context, w storage.Window) ([]*T, error) {
	list, err := q.scan(ctx)
	if err != nil {
		return nil, err
	}
	return applyWindow(list, w), nil
}

func (q *preparedQuery[T]) FindFirst(ctx context.Context) (*T, error) {
	list, err := q.scan(ctx)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (q *preparedQuery[T]) FindUnique(ctx context.Context) (*T, error) {
	list, err := q.scan(ctx)
	if err != nil {
		return nil, err
	}
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return list[0], nil
	default:
		return nil, errors.Wrapf(storage.ErrNonUnique, "%d entities matched", len(list))
	}
}

func (q *preparedQuery[T]) Count(ctx context.Context) (int64, error) {
	list, err := q.scan(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (q *preparedQuery[T]) Remove(ctx context.Context) ([]uint64, error) {
	var keys []uint64
	err := q.box.RunInTx(ctx, func(ctx context.Context) error {
		list, err := q.scan(ctx)
		if err != nil {
			return err
		}
		keys = make([]uint64, 0, len(list))
		for _, e := range list {
			keys = append(keys, q.box.info.KeyOf(e))
		}
		return q.box.RemoveKeys(ctx, keys)
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// scan loads everything in key order and filters, then applies the template's
// orderings.
func (q *preparedQuery[T]) scan(ctx context.Context) ([]*T, error) {
	all, err := q.box.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]*T, 0, len(all))
	for _, e := range all {
		ok, err := q.matcher.matches(e)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, e)
		}
	}
	if len(q.orders) > 0 {
		if err := sortEntities(matched, q.orders); err != nil {
			return nil, err
		}
	}
	return matched, nil
}

// sortEntities applies the orderings stably, so the storage key order breaks
// ties. String properties sort case-insensitively.
func sortEntities[T any](list []*T, orders []storage.Order) error {
	var sortErr error
	sort.SliceStable(list, func(i, j int) bool {
		a := reflect.ValueOf(list[i]).Elem()
		b := reflect.ValueOf(list[j]).Elem()
		for _, o := range orders {
			cmp, err := compareValues(
				a.FieldByName(o.Property).Interface(),
				b.FieldByName(o.Property).Interface(),
				storage.StringOrderCaseInsensitive,
			)
			if err != nil {
				if sortErr == nil {
					sortErr = err
				}
				return false
			}
			if cmp == 0 {
				continue
			}
			if o.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}

func applyWindow[T any](list []*T, w storage.Window) []*T {
	if !w.Windowed {
		return list
	}
	if w.Offset >= len(list) {
		return nil
	}
	list = list[w.Offset:]
	if w.Limit > 0 && w.Limit < len(list) {
		list = list[:w.Limit]
	}
	return list
}
