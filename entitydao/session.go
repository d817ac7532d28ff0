package entitydao

import (
	"context"
	"reflect"
	"sync"

	"github.com/pkg/errors"

	"github.com/entsession/go-entity-session/storage"
)

// ErrNoDAO indicates the session has no DAO registered for the entity type a
// typed operation asked for.
var ErrNoDAO = errors.New("entitydao: no DAO registered for entity type")

// Session routes typed operations to the DAOs registered with it and scopes
// transactions across them. A session with a Register call per entity type
// is the usual application entry point; DAOs stay usable directly.
type Session struct {
	tx storage.TxRunner

	mu   sync.RWMutex
	daos map[reflect.Type]any
}

// NewSession builds a session whose transactions run through tx, normally
// the storage engine shared by all registered boxes.
func NewSession(tx storage.TxRunner) *Session {
	return &Session{
		tx:   tx,
		daos: make(map[reflect.Type]any),
	}
}

// Register adds dao to the session, keyed by its entity type. Registering a
// second DAO for the same type replaces the first.
func Register[T any](s *Session, dao *DAO[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dao.session = s
	s.daos[reflect.TypeOf((*T)(nil))] = dao
}

// DAOFor returns the session's DAO for T, or ErrNoDAO.
func DAOFor[T any](s *Session) (*DAO[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.daos[reflect.TypeOf((*T)(nil))]
	if !ok {
		return nil, errors.WithStack(ErrNoDAO)
	}
	return v.(*DAO[T]), nil
}

// Load routes to the registered DAO's Load.
func Load[T any](ctx context.Context, s *Session, key uint64) (*T, error) {
	dao, err := DAOFor[T](s)
	if err != nil {
		return nil, err
	}
	return dao.Load(ctx, key)
}

// LoadAll routes to the registered DAO's LoadAll.
func LoadAll[T any](ctx context.Context, s *Session) ([]*T, error) {
	dao, err := DAOFor[T](s)
	if err != nil {
		return nil, err
	}
	return dao.LoadAll(ctx)
}

// Put routes to the registered DAO's Put.
func Put[T any](ctx context.Context, s *Session, e *T) (uint64, error) {
	dao, err := DAOFor[T](s)
	if err != nil {
		return 0, err
	}
	return dao.Put(ctx, e)
}

// Delete routes to the registered DAO's Delete.
func Delete[T any](ctx context.Context, s *Session, e *T) error {
	dao, err := DAOFor[T](s)
	if err != nil {
		return err
	}
	return dao.Delete(ctx, e)
}

// Refresh routes to the registered DAO's Refresh.
func Refresh[T any](ctx context.Context, s *Session, e *T) error {
	dao, err := DAOFor[T](s)
	if err != nil {
		return err
	}
	return dao.Refresh(ctx, e)
}

// DeleteAll routes to the registered DAO's DeleteAll.
func DeleteAll[T any](ctx context.Context, s *Session) error {
	dao, err := DAOFor[T](s)
	if err != nil {
		return err
	}
	return dao.DeleteAll(ctx)
}

// DAOs returns the registered DAOs in no particular order. Entries are
// *DAO[T] values; callers needing the typed form use DAOFor.
func (s *Session) DAOs() []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]any, 0, len(s.daos))
	for _, dao := range s.daos {
		out = append(out, dao)
	}
	return out
}

// RunInTx runs fn inside one storage transaction. The transaction travels in
// the context fn receives; DAO and box calls made with that context join it,
// and the whole body commits or rolls back as a unit.
func (s *Session) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.RunInTx(ctx, fn)
}

// CallInTx is RunInTx with a result value.
func CallInTx[V any](ctx context.Context, s *Session, fn func(ctx context.Context) (V, error)) (V, error) {
	var out V
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
