package memory

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"

	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/versioned"
)

// Table stores versioned entities as JSON documents.
type Table[T versioned.Entity] struct {
	c     *Collection
	name  string
	newFn func() T
}

// NewTable returns a table for the entity type produced by newFn.
func NewTable[T versioned.Entity](db *DB, newFn func() T) *Table[T] {
	name := newFn().Table()
	return &Table[T]{c: db.Collection(name), name: name, newFn: newFn}
}

func (t *Table[T]) decode(raw []byte) (T, error) {
	e := t.newFn()
	if err := json.Unmarshal(raw, e); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "decode %s row", t.name)
	}
	return e, nil
}

func storedVersion(raw []byte) (int64, error) {
	var m versioned.Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0, err
	}
	return m.Version, nil
}

// Get implements storage.Table.
func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	var raw []byte
	err := t.c.View(ctx, func(docs map[string][]byte) error {
		raw = docs[id]
		return nil
	})
	if err != nil || raw == nil {
		var zero T
		if err == nil {
			err = errors.Wrapf(storage.ErrNotFound, "%s %s", t.name, id)
		}
		return zero, err
	}
	return t.decode(raw)
}

// Insert implements storage.Table.
func (t *Table[T]) Insert(ctx context.Context, e T) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "encode %s row", t.name)
	}
	id := e.Metadata().ID
	return t.c.Mutate(ctx, func(docs map[string][]byte) error {
		if _, ok := docs[id]; ok {
			return errors.Wrapf(storage.ErrAlreadyExists, "%s %s", t.name, id)
		}
		docs[id] = raw
		return nil
	})
}

// UpdateIfVersion implements storage.Table.
func (t *Table[T]) UpdateIfVersion(ctx context.Context, e T, expected int64) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "encode %s row", t.name)
	}
	id := e.Metadata().ID
	return t.c.Mutate(ctx, func(docs map[string][]byte) error {
		if err := t.checkVersion(docs, id, expected); err != nil {
			return err
		}
		docs[id] = raw
		return nil
	})
}

// DeleteIfVersion implements storage.Table.
func (t *Table[T]) DeleteIfVersion(ctx context.Context, id string, expected int64) error {
	return t.c.Mutate(ctx, func(docs map[string][]byte) error {
		if err := t.checkVersion(docs, id, expected); err != nil {
			return err
		}
		delete(docs, id)
		return nil
	})
}

func (t *Table[T]) checkVersion(docs map[string][]byte, id string, expected int64) error {
	cur, ok := docs[id]
	if !ok {
		return errors.Wrapf(storage.ErrNotFound, "%s %s", t.name, id)
	}
	v, err := storedVersion(cur)
	if err != nil {
		return errors.Wrapf(err, "decode %s row", t.name)
	}
	if v != expected {
		return storage.VersionConflict(t.name, id, expected, v)
	}
	return nil
}

// ListBy implements storage.Table.
func (t *Table[T]) ListBy(ctx context.Context, field, value string) ([]T, error) {
	var rows [][]byte
	err := t.c.View(ctx, func(docs map[string][]byte) error {
		for _, raw := range docs {
			if field != "" {
				var fields map[string]any
				if err := json.Unmarshal(raw, &fields); err != nil {
					return errors.Wrapf(err, "decode %s row", t.name)
				}
				if s, ok := fields[field].(string); !ok || s != value {
					continue
				}
			}
			rows = append(rows, raw)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for _, raw := range rows {
		e, err := t.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Metadata(), out[j].Metadata()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}
