// Package storage defines the transactional storage contract shared by the
// Postgres and in-memory backends, the sentinel errors they return, and the
// transaction-scoped tracking switch.
package storage

import (
	"context"

	"github.com/cockroachdb/errors"

	"projectbeheer/backend/internal/versioned"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when the persisted version differs from
	// the version the caller last observed.
	ErrVersionConflict = errors.New("version conflict")
	// ErrAlreadyExists is returned when inserting a record whose id is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// VersionConflict builds an ErrVersionConflict describing the mismatch.
func VersionConflict(table, id string, expected, actual int64) error {
	return errors.Wrapf(ErrVersionConflict, "%s %s: expected version %d, found %d", table, id, expected, actual)
}

// Transactor runs fn inside one storage transaction. The context passed to fn
// carries the transaction; calls made with it join the same transaction.
// A nested InTx joins the outer transaction. Returning an error from fn, or
// cancelling the context before commit, rolls everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Table is a collection of versioned records of a single type.
type Table[T versioned.Entity] interface {
	Get(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, e T) error
	// UpdateIfVersion writes e only if the stored version still equals
	// expected. It returns ErrVersionConflict when no row matched.
	UpdateIfVersion(ctx context.Context, e T, expected int64) error
	// DeleteIfVersion removes the record only if the stored version still
	// equals expected.
	DeleteIfVersion(ctx context.Context, id string, expected int64) error
	// ListBy returns records whose JSON field equals value, oldest first.
	// An empty field lists everything.
	ListBy(ctx context.Context, field, value string) ([]T, error)
}
