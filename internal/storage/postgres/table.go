package postgres

import (
	"context"
	"encoding/json"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/versioned"
)

// Table stores one entity type in a table of shape
// (id, version, created_at, updated_at, body jsonb).
type Table[T versioned.Entity] struct {
	pool  Executor
	name  string
	newFn func() T
}

// NewTable returns a table for the entity type produced by newFn.
func NewTable[T versioned.Entity](pool Executor, newFn func() T) *Table[T] {
	return &Table[T]{pool: pool, name: newFn().Table(), newFn: newFn}
}

func (t *Table[T]) decode(raw []byte) (T, error) {
	e := t.newFn()
	if err := json.Unmarshal(raw, e); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "decode %s row", t.name)
	}
	return e, nil
}

// Get implements storage.Table.
func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	sql, args, err := NewQueryBuilder().
		Select("body").
		From(t.name).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return zero, errors.Wrap(err, "build get query")
	}

	var raw []byte
	if err := Conn(ctx, t.pool).QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, errors.Wrapf(storage.ErrNotFound, "%s %s", t.name, id)
		}
		return zero, errors.Wrapf(err, "get %s %s", t.name, id)
	}
	return t.decode(raw)
}

// Insert implements storage.Table.
func (t *Table[T]) Insert(ctx context.Context, e T) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "encode %s row", t.name)
	}
	m := e.Metadata()
	sql, args, err := NewQueryBuilder().
		Insert(t.name).
		Columns("id", "version", "created_at", "updated_at", "body").
		Values(m.ID, m.Version, m.CreatedAt, m.UpdatedAt, raw).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build insert query")
	}
	if _, err := Conn(ctx, t.pool).Exec(ctx, sql, args...); err != nil {
		return translate(errors.Wrapf(err, "insert %s %s", t.name, m.ID))
	}
	return nil
}

// UpdateIfVersion implements storage.Table.
func (t *Table[T]) UpdateIfVersion(ctx context.Context, e T, expected int64) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "encode %s row", t.name)
	}
	m := e.Metadata()
	sql, args, err := NewQueryBuilder().
		Update(t.name).
		Set("version", m.Version).
		Set("updated_at", m.UpdatedAt).
		Set("body", raw).
		Where(squirrel.Eq{"id": m.ID, "version": expected}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build update query")
	}
	tag, err := Conn(ctx, t.pool).Exec(ctx, sql, args...)
	if err != nil {
		return translate(errors.Wrapf(err, "update %s %s", t.name, m.ID))
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(storage.ErrVersionConflict, "%s %s: expected version %d", t.name, m.ID, expected)
	}
	return nil
}

// DeleteIfVersion implements storage.Table.
func (t *Table[T]) DeleteIfVersion(ctx context.Context, id string, expected int64) error {
	sql, args, err := NewQueryBuilder().
		Delete(t.name).
		Where(squirrel.Eq{"id": id, "version": expected}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build delete query")
	}
	tag, err := Conn(ctx, t.pool).Exec(ctx, sql, args...)
	if err != nil {
		return translate(errors.Wrapf(err, "delete %s %s", t.name, id))
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(storage.ErrVersionConflict, "%s %s: expected version %d", t.name, id, expected)
	}
	return nil
}

// ListBy implements storage.Table.
func (t *Table[T]) ListBy(ctx context.Context, field, value string) ([]T, error) {
	q := NewQueryBuilder().
		Select("body").
		From(t.name).
		OrderBy("created_at", "id")
	if field != "" {
		q = q.Where(squirrel.Expr("body->>? = ?", field, value))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list query")
	}

	rows, err := Conn(ctx, t.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", t.name)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrapf(err, "scan %s row", t.name)
		}
		e, err := t.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "list %s", t.name)
	}
	return out, nil
}
