// Package memory is an in-process storage backend. Transactions are
// serialized and copy-on-write: a transaction works on private copies of the
// collections it touches and publishes them only on commit.
package memory

import (
	"context"
	"maps"
	"sync"

	"projectbeheer/backend/internal/storage"
)

// DB holds named collections of JSON documents keyed by id.
type DB struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

// New returns an empty database.
func New() *DB {
	return &DB{data: map[string]map[string][]byte{}}
}

type txState struct {
	mu      sync.Mutex
	base    map[string]map[string][]byte
	written map[string]map[string][]byte
}

type txKey struct{}

func txFrom(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

// InTx implements storage.Transactor.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	hooks := &storage.Hooks{}
	err := func() error {
		db.mu.Lock()
		defer db.mu.Unlock()

		st := &txState{base: db.data, written: map[string]map[string][]byte{}}
		txCtx := storage.WithHooks(context.WithValue(ctx, txKey{}, st), hooks)
		if err := fn(txCtx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		next := make(map[string]map[string][]byte, len(db.data)+len(st.written))
		maps.Copy(next, db.data)
		maps.Copy(next, st.written)
		db.data = next
		return nil
	}()
	if err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

// view calls fn with a read-only view of the named collection.
func (db *DB) view(ctx context.Context, name string, fn func(c map[string][]byte) error) error {
	if st := txFrom(ctx); st != nil {
		st.mu.Lock()
		defer st.mu.Unlock()
		if c, ok := st.written[name]; ok {
			return fn(c)
		}
		return fn(st.base[name])
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.data[name])
}

// mutate calls fn with a writable copy of the named collection inside the
// transaction carried by ctx, opening one when there is none.
func (db *DB) mutate(ctx context.Context, name string, fn func(c map[string][]byte) error) error {
	st := txFrom(ctx)
	if st == nil {
		return db.InTx(ctx, func(ctx context.Context) error {
			return db.mutate(ctx, name, fn)
		})
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	c, ok := st.written[name]
	if !ok {
		c = maps.Clone(st.base[name])
		if c == nil {
			c = map[string][]byte{}
		}
		st.written[name] = c
	}
	return fn(c)
}

// Collection is a named set of JSON documents. Repositories that do not store
// versioned entities use it directly.
type Collection struct {
	db   *DB
	name string
}

// Collection returns a handle to the named collection.
func (db *DB) Collection(name string) *Collection {
	return &Collection{db: db, name: name}
}

// View calls fn with a read-only view of the collection.
func (c *Collection) View(ctx context.Context, fn func(docs map[string][]byte) error) error {
	return c.db.view(ctx, c.name, fn)
}

// Mutate calls fn with a writable view of the collection inside a transaction.
func (c *Collection) Mutate(ctx context.Context, fn func(docs map[string][]byte) error) error {
	return c.db.mutate(ctx, c.name, fn)
}
