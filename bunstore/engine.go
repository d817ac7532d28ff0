// Package bunstore backs the storage capability with a SQL database through
// bun. Entities are bun models; the session core stays unaware of tables and
// columns, and predicate templates compile to SQL per execution.
//
// Transactions travel in the context: RunInTx opens one bun transaction and
// every box call made with the context it hands to the body joins it.
package bunstore

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

type idbContextKey struct{}

// Engine owns the bun database shared by all boxes built on it.
type Engine struct {
	db  *bun.DB
	log *slog.Logger
}

// EngineOption customizes an Engine at open time.
type EngineOption func(*Engine)

// WithLogger sets the logger the engine and its boxes report through.
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// Open opens a SQLite database at dsn. Use ":memory:" for tests.
func Open(dsn string, opts ...EngineOption) (*Engine, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening sqlite db %s", dsn)
	}
	e := &Engine{
		db:  bun.NewDB(sqldb, sqlitedialect.New()),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log.Debug("bunstore: opened", "dsn", dsn)
	return e, nil
}

// DB exposes the underlying bun handle for schema work outside the boxes.
func (e *Engine) DB() *bun.DB { return e.db }

// Close closes the underlying database.
func (e *Engine) Close() error {
	e.log.Debug("bunstore: closing")
	return e.db.Close()
}

// RunInTx runs fn inside one transaction. If ctx already carries one the
// body joins it; commit and rollback stay with the outermost caller.
func (e *Engine) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(idbContextKey{}).(bun.IDB); ok {
		return fn(ctx)
	}
	return e.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(context.WithValue(ctx, idbContextKey{}, bun.IDB(tx)))
	})
}

// idb returns the connection to execute on: the transaction carried by ctx,
// or the shared database handle.
func (e *Engine) idb(ctx context.Context) bun.IDB {
	if idb, ok := ctx.Value(idbContextKey{}).(bun.IDB); ok {
		return idb
	}
	return e.db
}
