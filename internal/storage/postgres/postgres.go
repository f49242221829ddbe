// Package postgres implements the storage contract on PostgreSQL via pgx.
// The active pgx.Tx travels in the context so that repositories in other
// packages join the caller's transaction through Conn.
package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/storage"
)

// Executor runs SQL. Both pgx.Tx and *pgxpool.Pool satisfy it.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is an Executor that can open transactions. *pgxpool.Pool and
// pgxmock.PgxPoolIface satisfy it.
type Pool interface {
	Executor
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// NewQueryBuilder returns a squirrel builder using $n placeholders.
func NewQueryBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

type txKey struct{}

// Conn returns the transaction carried by ctx, or pool when there is none.
func Conn(ctx context.Context, pool Executor) Executor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// ParseIsolation maps a config value to a pgx isolation level. Unknown or
// empty values select serializable.
func ParseIsolation(s string) pgx.TxIsoLevel {
	switch s {
	case "read_committed":
		return pgx.ReadCommitted
	case "repeatable_read":
		return pgx.RepeatableRead
	default:
		return pgx.Serializable
	}
}

// Transactor implements storage.Transactor on a pgx pool.
type Transactor struct {
	pool Pool
	iso  pgx.TxIsoLevel
}

// NewTransactor returns a Transactor opening transactions at iso.
func NewTransactor(pool Pool, iso pgx.TxIsoLevel) *Transactor {
	return &Transactor{pool: pool, iso: iso}
}

// InTx implements storage.Transactor. Serialization failures surface as
// storage.ErrVersionConflict.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: t.iso})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	hooks := &storage.Hooks{}
	txCtx := storage.WithHooks(context.WithValue(ctx, txKey{}, tx), hooks)
	if err := fn(txCtx); err != nil {
		return translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(errors.Wrap(err, "commit transaction"))
	}
	committed = true
	hooks.Run(ctx)
	return nil
}

// translate maps Postgres error codes onto storage sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return apperr.Mark(err, storage.ErrVersionConflict)
	case pgerrcode.UniqueViolation:
		return apperr.Mark(err, storage.ErrAlreadyExists)
	}
	return err
}
