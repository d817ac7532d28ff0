package storage

import "errors"

var (
	// ErrNilEntity reports an operation that requires an entity but was
	// handed nil. This is a programmer error at the call site.
	ErrNilEntity = errors.New("entity must not be nil")

	// ErrNoKey reports an entity whose key field is unset where a key is
	// required (delete, refresh, detach, batch reconciliation).
	ErrNoKey = errors.New("entity has no key")

	// ErrNotFound reports a key that no longer exists in storage where the
	// operation requires it to (refresh, unique-or-error lookups).
	ErrNotFound = errors.New("entity not found")

	// ErrNonUnique reports a unique lookup that matched more than one row.
	ErrNonUnique = errors.New("query matched more than one entity")

	// ErrNotUpdateable reports a put of an unkeyed entity whose type does
	// not allow writing the key back after assignment.
	ErrNotUpdateable = errors.New("entity type does not allow key assignment")
)
