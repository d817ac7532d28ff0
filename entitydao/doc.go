// Package entitydao is the access façade for one entity type: load-by-key,
// query building, transactional batch writes, and the identity reconciliation
// that keeps at most one in-memory instance per primary key.
//
// A DAO combines a storage.Box (the persistence capability), a
// storage.EntityInfo (the per-type key accessors) and an identity cache. Any
// entity list coming back from storage is reconciled against the cache under
// a single lock acquisition: previously seen keys yield the already cached
// canonical instance, new keys insert the freshly loaded one.
//
// A Session routes generic entity operations to the DAO registered for the
// entity's type and scopes multi-type work to one storage transaction.
package entitydao
