package entitydao

// reconcileAll merges freshly loaded instances with the identity cache: for
// every key already cached the canonical instance is substituted in place,
// everything else is inserted as new canonical. One lock acquisition covers
// the whole batch.
func (d *DAO[T]) reconcileAll(list []*T) ([]*T, error) {
	if d.scope == nil || len(list) == 0 {
		for _, e := range list {
			d.attachEntity(e)
		}
		return list, nil
	}

	d.scope.Lock()
	defer d.scope.Unlock()

	d.scope.ReserveRoom(len(list))
	for i, e := range list {
		key := d.info.KeyOf(e)
		if cached := d.scope.GetLocked(key); cached != nil {
			list[i] = cached
			continue
		}
		d.attachEntity(e)
		d.scope.PutLocked(key, e)
	}
	return list, nil
}

// reconcileOne resolves a single loaded instance against the cache without
// inserting a miss. Single query results substitute the canonical instance
// when one exists but do not become canonical themselves; only Load and the
// batch paths populate the cache.
func (d *DAO[T]) reconcileOne(e *T) *T {
	if e == nil {
		return nil
	}
	if d.scope == nil {
		d.attachEntity(e)
		return e
	}
	if cached := d.scope.Get(d.info.KeyOf(e)); cached != nil {
		return cached
	}
	d.attachEntity(e)
	return e
}
