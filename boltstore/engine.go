// Package boltstore backs the storage capability with an embedded bbolt
// database. Each entity type lives in its own bucket, keyed by the bucket's
// monotonic sequence, with entities encoded as JSON.
//
// Transactions travel in the context: RunInTx opens one write transaction
// and every box call made with the context it hands to the body joins that
// transaction instead of opening its own.
package boltstore

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

type txContextKey struct{}

// Engine owns the bbolt database shared by all boxes built on it.
type Engine struct {
	db  *bbolt.DB
	log *slog.Logger
}

// EngineOption customizes an Engine at open time.
type EngineOption func(*Engine)

// WithLogger sets the logger the engine and its boxes report through. The
// default discards nothing but uses slog's default handler.
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// Open opens (creating if needed) the database file at path.
func Open(path string, opts ...EngineOption) (*Engine, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bolt db %s", path)
	}
	e := &Engine{db: db, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.log.Debug("boltstore: opened", "path", path)
	return e, nil
}

// Close closes the underlying database.
func (e *Engine) Close() error {
	e.log.Debug("boltstore: closing")
	return e.db.Close()
}

// RunInTx runs fn inside one write transaction. If ctx already carries a
// transaction the body simply joins it; commit and rollback stay with the
// outermost caller.
func (e *Engine) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	return e.db.Update(func(tx *bbolt.Tx) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

func txFrom(ctx context.Context) *bbolt.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*bbolt.Tx)
	return tx
}

// update runs fn in the transaction carried by ctx, or in a fresh write
// transaction when there is none.
func (e *Engine) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if tx := txFrom(ctx); tx != nil {
		if !tx.Writable() {
			return errors.New("boltstore: write inside a read-only transaction")
		}
		return fn(tx)
	}
	return e.db.Update(fn)
}

// view runs fn in the transaction carried by ctx, or in a fresh read
// transaction when there is none.
func (e *Engine) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(tx)
	}
	return e.db.View(fn)
}
