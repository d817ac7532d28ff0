// Package testsupport holds the entity fixtures and file helpers shared by
// the integration tests.
package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/uptrace/bun"
)

// Person is the shared test entity. It doubles as a bun model so the same
// fixture runs against both storage backends.
type Person struct {
	bun.BaseModel `bun:"table:people,alias:p" json:"-"`

	ID   uint64 `bun:"id,pk,autoincrement" json:"id"`
	Ref  string `bun:"ref" json:"ref"`
	Name string `bun:"name" json:"name"`
	Age  int    `bun:"age" json:"age"`
}

// PersonInfo implements the entity accessors for Person.
type PersonInfo struct{}

func (PersonInfo) TypeName() string             { return "Person" }
func (PersonInfo) KeyOf(p *Person) uint64       { return p.ID }
func (PersonInfo) SetKey(p *Person, key uint64) { p.ID = key }
func (PersonInfo) Updateable() bool             { return true }
func (PersonInfo) CopyFields(from, to *Person) {
	to.Ref = from.Ref
	to.Name = from.Name
	to.Age = from.Age
}

// NewPerson returns an unkeyed person with a fresh external reference.
func NewPerson(name string, age int) *Person {
	return &Person{
		Ref:  uuid.NewString(),
		Name: name,
		Age:  age,
	}
}

// People returns n unkeyed persons with generated names.
func People(n int) []*Person {
	out := make([]*Person, n)
	for i := range out {
		out[i] = NewPerson(fmt.Sprintf("person-%02d", i), 20+i)
	}
	return out
}

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata
// directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// NewLogger returns a colored slog logger for engine construction in tests
// and examples. Pass io.Discard to silence it.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// TempDBPath returns a database file path inside a per-test temp directory.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "entities.db")
}
