package identity

import (
	"sync"
	"testing"
)

type note struct {
	ID   uint64
	Text string
}

func TestCache_PutGet(t *testing.T) {
	c := New[note]()

	if got := c.Get(1); got != nil {
		t.Fatalf("expected nil for empty cache, got %+v", got)
	}

	first := &note{ID: 1, Text: "a"}
	c.Put(1, first)

	if got := c.Get(1); got != first {
		t.Errorf("expected the same instance back, got %p want %p", got, first)
	}

	// Put on the same key replaces the canonical instance.
	second := &note{ID: 1, Text: "b"}
	c.Put(1, second)
	if got := c.Get(1); got != second {
		t.Errorf("expected replacement instance, got %p want %p", got, second)
	}
}

func TestCache_RemoveKeys(t *testing.T) {
	c := New[note]()
	for i := uint64(1); i <= 5; i++ {
		c.Put(i, &note{ID: i})
	}

	c.RemoveKeys([]uint64{1, 3, 5})

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries left, got %d", c.Len())
	}
	for _, key := range []uint64{1, 3, 5} {
		if c.Get(key) != nil {
			t.Errorf("key %d should have been removed", key)
		}
	}
	for _, key := range []uint64{2, 4} {
		if c.Get(key) == nil {
			t.Errorf("key %d should have survived", key)
		}
	}
}

func TestCache_Detach(t *testing.T) {
	c := New[note]()
	cached := &note{ID: 7}
	c.Put(7, cached)

	stale := &note{ID: 7}
	if c.Detach(7, stale) {
		t.Error("detach with a non-cached instance must not remove the entry")
	}
	if c.Get(7) != cached {
		t.Error("canonical instance should still be cached")
	}

	if !c.Detach(7, cached) {
		t.Error("detach with the cached instance should report removal")
	}
	if c.Get(7) != nil {
		t.Error("entry should be gone after detach")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[note]()
	c.Put(1, &note{ID: 1})
	c.Put(2, &note{ID: 2})

	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("expected empty cache after clear, got %d entries", c.Len())
	}
}

func TestCache_LockedVariants(t *testing.T) {
	c := New[note]()

	c.Lock()
	c.ReserveRoom(10)
	e := &note{ID: 3}
	if c.GetLocked(3) != nil {
		t.Error("expected miss before insert")
	}
	c.PutLocked(3, e)
	if c.GetLocked(3) != e {
		t.Error("expected hit after insert")
	}
	c.Unlock()

	if c.Get(3) != e {
		t.Error("locked insert should be visible after unlock")
	}
}

// Two goroutines racing to insert the same key must agree on one canonical
// instance: whoever wins the lock inserts, the other observes that instance.
func TestCache_ConcurrentInsertSingleWinner(t *testing.T) {
	c := New[note]()

	const workers = 8
	var wg sync.WaitGroup
	winners := make([]*note, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			c.Lock()
			got := c.GetLocked(42)
			if got == nil {
				got = &note{ID: 42}
				c.PutLocked(42, got)
			}
			c.Unlock()
			winners[slot] = got
		}(i)
	}
	wg.Wait()

	canonical := c.Get(42)
	if canonical == nil {
		t.Fatal("expected an entry for key 42")
	}
	for i, w := range winners {
		if w != canonical {
			t.Errorf("worker %d observed a non-canonical instance", i)
		}
	}
}
