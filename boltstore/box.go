package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/entsession/go-entity-session/storage"
)

// Box stores one entity type in its own bucket. It implements storage.Box.
type Box[T any] struct {
	engine *Engine
	info   storage.EntityInfo[T]
	bucket []byte
}

// NewBox returns a box for the entity type described by info. The bucket is
// created on first write.
func NewBox[T any](engine *Engine, info storage.EntityInfo[T]) *Box[T] {
	return &Box[T]{
		engine: engine,
		info:   info,
		bucket: []byte(info.TypeName()),
	}
}

// RunInTx delegates to the engine, so multi-box work can share one
// transaction.
func (b *Box[T]) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.engine.RunInTx(ctx, fn)
}

func (b *Box[T]) Get(ctx context.Context, key uint64) (*T, error) {
	var out *T
	err := b.engine.view(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(itob(key))
		if raw == nil {
			return nil
		}
		e, err := b.decode(raw)
		if err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

func (b *Box[T]) GetAll(ctx context.Context) ([]*T, error) {
	var out []*T
	err := b.engine.view(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			e, err := b.decode(v)
			if err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

func (b *Box[T]) Put(ctx context.Context, e *T) (uint64, error) {
	if e == nil {
		return 0, errors.WithStack(storage.ErrNilEntity)
	}
	key := b.info.KeyOf(e)
	err := b.engine.update(ctx, func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return errors.Wrapf(err, "creating bucket %s", b.bucket)
		}
		if key == 0 {
			if !b.info.Updateable() {
				return errors.WithStack(storage.ErrNotUpdateable)
			}
			key, err = bucket.NextSequence()
			if err != nil {
				return errors.Wrap(err, "allocating key")
			}
			b.info.SetKey(e, key)
		} else if key > bucket.Sequence() {
			// Keep the sequence ahead of caller-assigned keys so a later
			// NextSequence never reissues one of them.
			if err := bucket.SetSequence(key); err != nil {
				return errors.Wrap(err, "advancing key sequence")
			}
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return errors.Wrapf(err, "encoding %s", b.info.TypeName())
		}
		return bucket.Put(itob(key), raw)
	})
	if err != nil {
		return 0, err
	}
	return key, nil
}

func (b *Box[T]) Remove(ctx context.Context, key uint64) error {
	return b.engine.update(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(itob(key))
	})
}

func (b *Box[T]) RemoveKeys(ctx context.Context, keys []uint64) error {
	return b.engine.update(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}
		for _, key := range keys {
			if err := bucket.Delete(itob(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Box[T]) RemoveAll(ctx context.Context) error {
	return b.engine.update(ctx, func(tx *bbolt.Tx) error {
		if tx.Bucket(b.bucket) == nil {
			return nil
		}
		// Dropping the bucket also resets its key sequence; recreate it so
		// the sequence survives and keys are never reissued.
		bucket := tx.Bucket(b.bucket)
		seq := bucket.Sequence()
		if err := tx.DeleteBucket(b.bucket); err != nil {
			return err
		}
		fresh, err := tx.CreateBucket(b.bucket)
		if err != nil {
			return err
		}
		return fresh.SetSequence(seq)
	})
}

func (b *Box[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := b.engine.view(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}
		// Stats does not reflect uncommitted writes of the current
		// transaction; walk the cursor so in-tx counts are accurate.
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Prepare builds a scan-based query handle. bbolt has no query engine, so
// conditions are evaluated per entity after decoding.
func (b *Box[T]) Prepare(spec storage.QuerySpec) (storage.PreparedQuery[T], error) {
	m, err := newMatcher[T](spec.Conditions)
	if err != nil {
		return nil, err
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	for _, o := range spec.Orders {
		if _, ok := t.FieldByName(o.Property); !ok {
			return nil, errors.Errorf("boltstore: %s has no property %q", t.Name(), o.Property)
		}
	}
	return &preparedQuery[T]{
		box:     b,
		matcher: m,
		orders:  spec.Orders,
	}, nil
}

func (b *Box[T]) decode(raw []byte) (*T, error) {
	e := new(T)
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", b.info.TypeName())
	}
	return e, nil
}

func itob(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
