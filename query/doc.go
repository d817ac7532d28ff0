// Package query implements reusable queries on top of a storage.Box.
//
// A Builder accumulates conditions and orderings into an immutable template.
// Building the template yields a Query bound to the calling goroutine; the
// template keeps a registry of one lazily created Query per goroutine, so the
// same logical query can be executed concurrently without sharing mutable
// native query state. ForCurrentThread is the only supported way to move a
// query to another goroutine; every other method fails with ErrOwnership
// when invoked from a goroutine that does not own the instance.
package query
