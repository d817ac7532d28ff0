// Package storage defines the capability surface the entity session core is
// built against: the Box persistence contract, the per-type entity accessors,
// and the predicate model that query templates compile down to.
//
// The package contains no persistence logic of its own. Concrete engines
// (boltstore, bunstore) implement Box; callers supply an EntityInfo for every
// entity type they register.
package storage
