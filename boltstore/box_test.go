package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/entsession/go-entity-session/storage"
)

type note struct {
	ID    uint64
	Title string
	Stars int
}

type noteInfo struct{}

func (noteInfo) TypeName() string           { return "Note" }
func (noteInfo) KeyOf(n *note) uint64       { return n.ID }
func (noteInfo) SetKey(n *note, key uint64) { n.ID = key }
func (noteInfo) Updateable() bool           { return true }
func (noteInfo) CopyFields(from, to *note) {
	to.Title = from.Title
	to.Stars = from.Stars
}

type frozenNoteInfo struct{ noteInfo }

func (frozenNoteInfo) Updateable() bool { return false }

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func seedNotes(t *testing.T, box *Box[note], notes ...*note) {
	t.Helper()
	for _, n := range notes {
		if _, err := box.Put(context.Background(), n); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
}

func TestBoxPutGet(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()

	n := &note{Title: "first", Stars: 3}
	key, err := box.Put(ctx, n)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key == 0 || n.ID != key {
		t.Fatalf("expected assigned key written back, got key %d, ID %d", key, n.ID)
	}

	got, err := box.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Title != "first" || got.Stars != 3 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got == n {
		t.Fatal("storage must return a fresh instance")
	}

	if absent, err := box.Get(ctx, 999); err != nil || absent != nil {
		t.Fatalf("absent key: got %v, %v", absent, err)
	}
	if _, err := box.Put(ctx, nil); !errors.Is(err, storage.ErrNilEntity) {
		t.Fatalf("nil entity: got %v", err)
	}
}

func TestBoxPutKeepsExistingKey(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()

	n := &note{Title: "v1"}
	key, err := box.Put(ctx, n)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	n.Title = "v2"
	again, err := box.Put(ctx, n)
	if err != nil {
		t.Fatalf("Put update: %v", err)
	}
	if again != key {
		t.Fatalf("update reassigned the key: %d then %d", key, again)
	}
	got, _ := box.Get(ctx, key)
	if got.Title != "v2" {
		t.Fatalf("update not persisted: %+v", got)
	}
	if count, _ := box.Count(ctx); count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestBoxPutAssignedKeyAdvancesSequence(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()

	if _, err := box.Put(ctx, &note{ID: 2, Title: "keeper"}); err != nil {
		t.Fatalf("Put assigned key: %v", err)
	}
	first, err := box.Put(ctx, &note{Title: "a"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	second, err := box.Put(ctx, &note{Title: "b"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if first != 3 || second != 4 {
		t.Fatalf("generated keys must skip past assigned ones, got %d and %d", first, second)
	}
	if got, _ := box.Get(ctx, 2); got == nil || got.Title != "keeper" {
		t.Fatalf("assigned-key entity was clobbered: %+v", got)
	}
	if count, _ := box.Count(ctx); count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}
}

func TestBoxPutUnkeyedNotUpdateable(t *testing.T) {
	box := NewBox[note](openTestEngine(t), frozenNoteInfo{})

	_, err := box.Put(context.Background(), &note{Title: "x"})
	if !errors.Is(err, storage.ErrNotUpdateable) {
		t.Fatalf("expected ErrNotUpdateable, got %v", err)
	}
}

func TestBoxRemoveAllKeepsSequence(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()
	seedNotes(t, box, &note{Title: "a"}, &note{Title: "b"})

	if err := box.RemoveAll(ctx); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if count, _ := box.Count(ctx); count != 0 {
		t.Fatalf("expected empty box, got %d", count)
	}

	key, err := box.Put(ctx, &note{Title: "c"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key != 3 {
		t.Fatalf("key sequence must survive RemoveAll, got %d", key)
	}
}

func TestBoxCountSeesUncommittedPuts(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()

	err := box.RunInTx(ctx, func(ctx context.Context) error {
		for _, title := range []string{"a", "b", "c"} {
			if _, err := box.Put(ctx, &note{Title: title}); err != nil {
				return err
			}
		}
		n, err := box.Count(ctx)
		if err != nil {
			return err
		}
		if n != 3 {
			t.Fatalf("count inside the writing transaction: got %d, want 3", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}
	if n, _ := box.Count(ctx); n != 3 {
		t.Fatalf("count after commit: got %d, want 3", n)
	}
}

func TestBoxRunInTxRollback(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()
	boom := errors.New("boom")

	err := box.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := box.Put(ctx, &note{Title: "doomed"}); err != nil {
			return err
		}
		// A nested RunInTx joins; it must not commit on its own.
		return box.RunInTx(ctx, func(ctx context.Context) error {
			if _, err := box.Put(ctx, &note{Title: "also doomed"}); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected body error, got %v", err)
	}
	if count, _ := box.Count(ctx); count != 0 {
		t.Fatalf("rolled back transaction left %d rows", count)
	}
}

func TestPreparedQueryFind(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()
	seedNotes(t, box,
		&note{Title: "Alpha", Stars: 1},
		&note{Title: "beta", Stars: 4},
		&note{Title: "Gamma", Stars: 4},
		&note{Title: "delta", Stars: 2},
	)

	q, err := box.Prepare(storage.QuerySpec{
		Conditions: []storage.Condition{storage.GtEq("Stars", 2)},
		Orders:     []storage.Order{{Property: "Stars", Descending: true}, {Property: "Title"}},
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	list, err := q.Find(ctx, storage.Window{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	titles := make([]string, 0, len(list))
	for _, n := range list {
		titles = append(titles, n.Title)
	}
	want := []string{"beta", "Gamma", "delta"}
	if len(titles) != len(want) {
		t.Fatalf("got %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v", i, titles, want)
		}
	}

	windowed, err := q.Find(ctx, storage.Window{Windowed: true, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("windowed Find: %v", err)
	}
	if len(windowed) != 1 || windowed[0].Title != "Gamma" {
		t.Fatalf("window [1,1): got %+v", windowed)
	}
	if empty, _ := q.Find(ctx, storage.Window{Windowed: true, Offset: 10}); len(empty) != 0 {
		t.Fatalf("offset past end must be empty, got %d", len(empty))
	}
}

func TestPreparedQueryOperators(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()
	seedNotes(t, box,
		&note{Title: "Alpha", Stars: 1},
		&note{Title: "beta", Stars: 4},
		&note{Title: "alphabet", Stars: 2},
	)

	cases := []struct {
		name string
		cond storage.Condition
		want int
	}{
		{"eq case-insensitive", storage.Eq("Title", "ALPHA"), 1},
		{"neq", storage.NotEq("Stars", 4), 2},
		{"between", storage.Between("Stars", 1, 2), 2},
		{"in", storage.In("Stars", 1, 4), 2},
		{"contains", storage.Contains("Title", "PHA"), 2},
		{"startswith", storage.StartsWith("Title", "alpha"), 2},
		{"lt", storage.Lt("Stars", 2), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := box.Prepare(storage.QuerySpec{Conditions: []storage.Condition{tc.cond}})
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			n, err := q.Count(ctx)
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if n != int64(tc.want) {
				t.Fatalf("got %d matches, want %d", n, tc.want)
			}
		})
	}
}

func TestPreparedQueryCaseSensitiveCollation(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()
	seedNotes(t, box, &note{Title: "Alpha"}, &note{Title: "alpha"})

	cond := storage.Eq("Title", "alpha")
	cond.Collation = storage.StringOrderCaseSensitive
	q, err := box.Prepare(storage.QuerySpec{Conditions: []storage.Condition{cond}})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	n, err := q.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("case-sensitive eq: got %d matches, want 1", n)
	}
}

func TestPreparedQuerySetParam(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()
	seedNotes(t, box, &note{Title: "a", Stars: 1}, &note{Title: "b", Stars: 5})

	q, err := box.Prepare(storage.QuerySpec{Conditions: []storage.Condition{storage.Gt("Stars", 0)}})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if n, _ := q.Count(ctx); n != 2 {
		t.Fatalf("initial bind: got %d", n)
	}
	if err := q.SetParam(0, 3); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if n, _ := q.Count(ctx); n != 1 {
		t.Fatalf("rebound: got %d", n)
	}
}

func TestPreparedQueryUniqueAndRemove(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})
	ctx := context.Background()
	seedNotes(t, box, &note{Title: "a", Stars: 4}, &note{Title: "b", Stars: 4}, &note{Title: "c", Stars: 1})

	q, err := box.Prepare(storage.QuerySpec{Conditions: []storage.Condition{storage.Eq("Stars", 4)}})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := q.FindUnique(ctx); !errors.Is(err, storage.ErrNonUnique) {
		t.Fatalf("expected ErrNonUnique, got %v", err)
	}

	keys, err := q.Remove(ctx)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 removed keys, got %v", keys)
	}
	if count, _ := box.Count(ctx); count != 1 {
		t.Fatalf("expected 1 survivor, got %d", count)
	}
	if e, err := q.FindUnique(ctx); err != nil || e != nil {
		t.Fatalf("after removal FindUnique: got %v, %v", e, err)
	}
}

func TestPrepareUnknownProperty(t *testing.T) {
	box := NewBox[note](openTestEngine(t), noteInfo{})

	if _, err := box.Prepare(storage.QuerySpec{
		Conditions: []storage.Condition{storage.Eq("Nope", 1)},
	}); err == nil {
		t.Fatal("expected a property validation error")
	}
	if _, err := box.Prepare(storage.QuerySpec{
		Orders: []storage.Order{{Property: "Nope"}},
	}); err == nil {
		t.Fatal("expected an ordering validation error")
	}
}
