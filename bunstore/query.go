package bunstore

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/entsession/go-entity-session/storage"
)

// preparedQuery compiles the predicate to SQL on every execution, so rebound
// parameters simply flow into the next statement. The query layer above
// guarantees single-goroutine use.
type preparedQuery[T any] struct {
	box    *Box[T]
	conds  []storage.Condition
	orders []storage.Order
}

func (q *preparedQuery[T]) SetParam(index int, values ...any) error {
	if index < 0 || index >= len(q.conds) {
		return errors.Errorf("bunstore: parameter index %d out of range", index)
	}
	q.conds[index].Value = values[0]
	if len(values) > 1 {
		q.conds[index].Value2 = values[1]
	}
	return nil
}

func (q *preparedQuery[T]) Find(ctx context.Context, w storage.Window) ([]*T, error) {
	var list []*T
	sq := q.selectQuery(ctx, &list)
	if w.Windowed {
		// SQLite rejects OFFSET without LIMIT, and bun drops non-positive
		// limits, so an unlimited windowed query gets an explicit huge limit.
		limit := w.Limit
		if limit <= 0 {
			limit = math.MaxInt32
		}
		sq = sq.Limit(limit).Offset(w.Offset)
	}
	if err := sq.Scan(ctx); err != nil {
		return nil, errors.Wrapf(err, "querying %s", q.box.info.TypeName())
	}
	return list, nil
}

func (q *preparedQuery[T]) FindFirst(ctx context.Context) (*T, error) {
	list, err := q.Find(ctx, storage.Window{Windowed: true, Limit: 1})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (q *preparedQuery[T]) FindUnique(ctx context.Context) (*T, error) {
	list, err := q.Find(ctx, storage.Window{Windowed: true, Limit: 2})
	if err != nil {
		return nil, err
	}
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return list[0], nil
	default:
		return nil, errors.Wrap(storage.ErrNonUnique, "more than one entity matched")
	}
}

func (q *preparedQuery[T]) Count(ctx context.Context) (int64, error) {
	sq := q.box.engine.idb(ctx).NewSelect().Model((*T)(nil))
	n, err := q.applyConditions(sq).Count(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s", q.box.info.TypeName())
	}
	return int64(n), nil
}

// Remove selects the matching keys and deletes them in one transaction, so
// the caller learns exactly which rows went away.
func (q *preparedQuery[T]) Remove(ctx context.Context) ([]uint64, error) {
	var keys []uint64
	err := q.box.RunInTx(ctx, func(ctx context.Context) error {
		keys = keys[:0]
		sq := q.box.engine.idb(ctx).NewSelect().
			Model((*T)(nil)).
			Column(q.box.keyColumn)
		if err := q.applyConditions(sq).Scan(ctx, &keys); err != nil {
			return errors.Wrapf(err, "selecting %s keys for removal", q.box.info.TypeName())
		}
		return q.box.RemoveKeys(ctx, keys)
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (q *preparedQuery[T]) selectQuery(ctx context.Context, list *[]*T) *bun.SelectQuery {
	sq := q.box.engine.idb(ctx).NewSelect().Model(list)
	sq = q.applyConditions(sq)
	for _, o := range q.orders {
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		sq = sq.OrderExpr("? ?", bun.Ident(toSnake(o.Property)), bun.Safe(dir))
	}
	return sq
}

func (q *preparedQuery[T]) applyConditions(sq *bun.SelectQuery) *bun.SelectQuery {
	for _, c := range q.conds {
		sq = applyCondition(sq, c)
	}
	return sq
}

func applyCondition(sq *bun.SelectQuery, c storage.Condition) *bun.SelectQuery {
	col := bun.Ident(toSnake(c.Property))
	ci := c.Collation == storage.StringOrderCaseInsensitive
	_, isString := c.Value.(string)

	switch c.Op {
	case storage.OpEq, storage.OpNotEq, storage.OpGt, storage.OpGtEq, storage.OpLt, storage.OpLtEq:
		op := sqlOperator(c.Op)
		if isString && ci {
			return sq.Where("lower(?) "+op+" lower(?)", col, c.Value)
		}
		return sq.Where("? "+op+" ?", col, c.Value)

	case storage.OpBetween:
		if isString && ci {
			return sq.Where("lower(?) BETWEEN lower(?) AND lower(?)", col, c.Value, c.Value2)
		}
		return sq.Where("? BETWEEN ? AND ?", col, c.Value, c.Value2)

	case storage.OpIn:
		values, _ := c.Value.([]any)
		if ci && allStrings(values) {
			return sq.Where("lower(?) IN (?)", col, bun.In(lowered(values)))
		}
		return sq.Where("? IN (?)", col, bun.In(values))

	case storage.OpContains:
		if ci {
			return sq.Where("instr(lower(?), lower(?)) > 0", col, c.Value)
		}
		return sq.Where("instr(?, ?) > 0", col, c.Value)

	case storage.OpStartsWith:
		if ci {
			return sq.Where("substr(lower(?), 1, length(?)) = lower(?)", col, c.Value, c.Value)
		}
		return sq.Where("substr(?, 1, length(?)) = ?", col, c.Value, c.Value)
	}
	return sq.Err(errors.Errorf("bunstore: unsupported operator %s", c.Op))
}

func sqlOperator(op storage.Operator) string {
	switch op {
	case storage.OpEq:
		return "="
	case storage.OpNotEq:
		return "<>"
	case storage.OpGt:
		return ">"
	case storage.OpGtEq:
		return ">="
	case storage.OpLt:
		return "<"
	default:
		return "<="
	}
}

func allStrings(values []any) bool {
	for _, v := range values {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}

func lowered(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v.(string))
	}
	return out
}
