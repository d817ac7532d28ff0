package di

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/entsession/go-entity-session/boltstore"
	"github.com/entsession/go-entity-session/cache"
	"github.com/entsession/go-entity-session/entitydao"
	"github.com/entsession/go-entity-session/pkg/testsupport"
)

func openBoltEngine(t *testing.T) *boltstore.Engine {
	t.Helper()
	engine, err := boltstore.Open(
		testsupport.TempDBPath(t),
		boltstore.WithLogger(testsupport.NewLogger(io.Discard, slog.LevelError)),
	)
	if err != nil {
		t.Fatalf("opening engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestNewContainerWithDefaults(t *testing.T) {
	c, err := NewContainerWithDefaults(openBoltEngine(t))
	if err != nil {
		t.Fatalf("NewContainerWithDefaults: %v", err)
	}
	if c.Session() == nil || c.CacheService() == nil || c.KeySerializer() == nil {
		t.Fatal("container must expose its singletons")
	}
	if c.Config().Capacity != cache.DefaultConfig().Capacity {
		t.Fatalf("unexpected config: %+v", c.Config())
	}
}

func TestNewContainerRejectsBadConfig(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Capacity = -1
	if _, err := NewContainer(openBoltEngine(t), cfg); err == nil {
		t.Fatal("expected a config validation error")
	}
}

func TestRegisterEntity(t *testing.T) {
	engine := openBoltEngine(t)
	c, err := NewContainerWithDefaults(engine)
	if err != nil {
		t.Fatalf("NewContainerWithDefaults: %v", err)
	}

	box := boltstore.NewBox[testsupport.Person](engine, testsupport.PersonInfo{})
	dao := RegisterEntity[testsupport.Person](c, box, testsupport.PersonInfo{})
	if dao.Session() != c.Session() {
		t.Fatal("DAO must be registered with the container session")
	}

	registered, err := entitydao.DAOFor[testsupport.Person](c.Session())
	if err != nil {
		t.Fatalf("DAOFor: %v", err)
	}
	if registered != dao {
		t.Fatal("session returned a different DAO")
	}

	if _, err := dao.Put(context.Background(), testsupport.NewPerson("ann", 30)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n, err := dao.Count(context.Background()); err != nil || n != 1 {
		t.Fatalf("Count: got %d, %v", n, err)
	}
}
