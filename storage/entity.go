package storage

// EntityInfo provides the per-type accessors the core needs to work with an
// entity without interpreting its fields. Implementations are typically a
// handful of one-line methods next to the entity type.
type EntityInfo[T any] interface {
	// TypeName returns a stable name for the entity type. Engines use it to
	// name buckets or tables; sessions use it for routing diagnostics.
	TypeName() string

	// KeyOf returns the entity's primary key, or 0 if none is assigned.
	KeyOf(e *T) uint64

	// SetKey writes an assigned key back into the entity. Only called when
	// Updateable reports true.
	SetKey(e *T, key uint64)

	// Updateable reports whether SetKey may be used on this type.
	Updateable() bool

	// CopyFields overwrites to's fields with from's. Used by refresh to
	// update an instance in place while preserving its identity.
	CopyFields(from, to *T)
}
