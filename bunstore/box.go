package bunstore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/entsession/go-entity-session/storage"
)

// Box stores one entity type in its own table. T must be a bun model; the
// key column defaults to "id" and is overridable per box.
type Box[T any] struct {
	engine    *Engine
	info      storage.EntityInfo[T]
	keyColumn string
}

// BoxOption customizes a Box at construction time.
type BoxOption[T any] func(*Box[T])

// WithKeyColumn overrides the column the entity key is stored in.
func WithKeyColumn[T any](column string) BoxOption[T] {
	return func(b *Box[T]) { b.keyColumn = column }
}

// NewBox returns a box for the entity type described by info.
func NewBox[T any](engine *Engine, info storage.EntityInfo[T], opts ...BoxOption[T]) *Box[T] {
	b := &Box[T]{
		engine:    engine,
		info:      info,
		keyColumn: "id",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init creates the entity's table if it does not exist yet.
func (b *Box[T]) Init(ctx context.Context) error {
	_, err := b.engine.idb(ctx).NewCreateTable().
		Model((*T)(nil)).
		IfNotExists().
		Exec(ctx)
	return errors.Wrapf(err, "creating table for %s", b.info.TypeName())
}

// RunInTx delegates to the engine, so multi-box work can share one
// transaction.
func (b *Box[T]) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.engine.RunInTx(ctx, fn)
}

func (b *Box[T]) Get(ctx context.Context, key uint64) (*T, error) {
	e := new(T)
	err := b.engine.idb(ctx).NewSelect().
		Model(e).
		Where("? = ?", bun.Ident(b.keyColumn), key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "selecting %s key %d", b.info.TypeName(), key)
	}
	return e, nil
}

func (b *Box[T]) GetAll(ctx context.Context) ([]*T, error) {
	var list []*T
	err := b.engine.idb(ctx).NewSelect().
		Model(&list).
		OrderExpr("? ASC", bun.Ident(b.keyColumn)).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting all %s", b.info.TypeName())
	}
	return list, nil
}

func (b *Box[T]) Put(ctx context.Context, e *T) (uint64, error) {
	if e == nil {
		return 0, errors.WithStack(storage.ErrNilEntity)
	}
	idb := b.engine.idb(ctx)
	key := b.info.KeyOf(e)

	if key == 0 {
		if !b.info.Updateable() {
			return 0, errors.WithStack(storage.ErrNotUpdateable)
		}
		res, err := idb.NewInsert().Model(e).Exec(ctx)
		if err != nil {
			return 0, errors.Wrapf(err, "inserting %s", b.info.TypeName())
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, errors.Wrap(err, "reading assigned key")
		}
		key = uint64(id)
		b.info.SetKey(e, key)
		return key, nil
	}

	res, err := idb.NewUpdate().
		Model(e).
		Where("? = ?", bun.Ident(b.keyColumn), key).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "updating %s key %d", b.info.TypeName(), key)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "reading affected rows")
	}
	if affected == 0 {
		// A caller-assigned key with no existing row becomes an insert.
		if _, err := idb.NewInsert().Model(e).Exec(ctx); err != nil {
			return 0, errors.Wrapf(err, "inserting %s key %d", b.info.TypeName(), key)
		}
	}
	return key, nil
}

func (b *Box[T]) Remove(ctx context.Context, key uint64) error {
	_, err := b.engine.idb(ctx).NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(b.keyColumn), key).
		Exec(ctx)
	return errors.Wrapf(err, "deleting %s key %d", b.info.TypeName(), key)
}

func (b *Box[T]) RemoveKeys(ctx context.Context, keys []uint64) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := b.engine.idb(ctx).NewDelete().
		Model((*T)(nil)).
		Where("? IN (?)", bun.Ident(b.keyColumn), bun.In(keys)).
		Exec(ctx)
	return errors.Wrapf(err, "deleting %d %s keys", len(keys), b.info.TypeName())
}

func (b *Box[T]) RemoveAll(ctx context.Context) error {
	_, err := b.engine.idb(ctx).NewDelete().
		Model((*T)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return errors.Wrapf(err, "deleting all %s", b.info.TypeName())
}

func (b *Box[T]) Count(ctx context.Context) (int64, error) {
	n, err := b.engine.idb(ctx).NewSelect().
		Model((*T)(nil)).
		Count(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s", b.info.TypeName())
	}
	return int64(n), nil
}

// Prepare compiles the spec into a handle that rebuilds its SQL per
// execution from the currently bound parameter values.
func (b *Box[T]) Prepare(spec storage.QuerySpec) (storage.PreparedQuery[T], error) {
	for _, c := range spec.Conditions {
		if c.Property == "" {
			return nil, errors.New("bunstore: condition without a property")
		}
	}
	return &preparedQuery[T]{
		box:    b,
		conds:  append([]storage.Condition(nil), spec.Conditions...),
		orders: append([]storage.Order(nil), spec.Orders...),
	}, nil
}
