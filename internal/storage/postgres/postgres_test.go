package postgres

import (
	"context"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/versioned"
)

type note struct {
	versioned.Meta
	Owner string `json:"owner"`
}

func (note) Table() string { return "notes" }

func (note) SchemaVersion() int { return 1 }

func newNote() *note { return &note{} }

var _ storage.Table[*note] = (*Table[*note])(nil)
var _ storage.Transactor = (*Transactor)(nil)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestTable_Get(t *testing.T) {
	t.Run("nominal", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM notes WHERE id = $1")).
			WithArgs("n1").
			WillReturnRows(pgxmock.NewRows([]string{"body"}).
				AddRow([]byte(`{"id":"n1","version":3,"owner":"alice"}`)))

		got, err := NewTable(mock, newNote).Get(context.Background(), "n1")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Owner)
		assert.Equal(t, int64(3), got.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM notes WHERE id = $1")).
			WithArgs("n1").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewTable(mock, newNote).Get(context.Background(), "n1")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTable_Insert(t *testing.T) {
	n := &note{Meta: versioned.Meta{ID: "n1", Version: 1, CreatedAt: time.Now()}, Owner: "alice"}

	t.Run("nominal", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO notes").
			WithArgs("n1", int64(1), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewTable(mock, newNote).Insert(context.Background(), n))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO notes").
			WithArgs("n1", int64(1), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		err := NewTable(mock, newNote).Insert(context.Background(), n)
		assert.True(t, errors.Is(err, storage.ErrAlreadyExists))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTable_UpdateIfVersion(t *testing.T) {
	n := &note{Meta: versioned.Meta{ID: "n1", Version: 3}, Owner: "bob"}
	query := regexp.QuoteMeta("UPDATE notes SET version = $1, updated_at = $2, body = $3 WHERE id = $4 AND version = $5")

	t.Run("nominal", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(query).
			WithArgs(int64(3), pgxmock.AnyArg(), pgxmock.AnyArg(), "n1", int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewTable(mock, newNote).UpdateIfVersion(context.Background(), n, 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(query).
			WithArgs(int64(3), pgxmock.AnyArg(), pgxmock.AnyArg(), "n1", int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewTable(mock, newNote).UpdateIfVersion(context.Background(), n, 2)
		assert.True(t, errors.Is(err, storage.ErrVersionConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTable_DeleteIfVersion(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1 AND version = $2")).
		WithArgs("n1", int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := NewTable(mock, newNote).DeleteIfVersion(context.Background(), "n1", 4)
	assert.True(t, errors.Is(err, storage.ErrVersionConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_ListBy(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM notes WHERE body->>$1 = $2 ORDER BY created_at, id")).
		WithArgs("owner", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"id":"n1","owner":"alice"}`)).
			AddRow([]byte(`{"id":"n2","owner":"alice"}`)))

	got, err := NewTable(mock, newNote).ListBy(context.Background(), "owner", "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n2", got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_CommitRunsHooks(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes")).
		WithArgs("n1", int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	tbl := NewTable(mock, newNote)
	var hookRan bool
	err := NewTransactor(mock, pgx.Serializable).InTx(context.Background(), func(ctx context.Context) error {
		storage.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return tbl.DeleteIfVersion(ctx, "n1", 1)
	})
	require.NoError(t, err)
	assert.True(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RollbackOnError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectRollback()

	var hookRan bool
	boom := errors.New("boom")
	err := NewTransactor(mock, pgx.ReadCommitted).InTx(context.Background(), func(ctx context.Context) error {
		storage.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_NestedJoins(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectCommit()

	tx := NewTransactor(mock, pgx.Serializable)
	err := tx.InTx(context.Background(), func(ctx context.Context) error {
		return tx.InTx(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_SerializationFailureIsConflict(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	mock.ExpectRollback()

	err := NewTransactor(mock, pgx.Serializable).InTx(context.Background(), func(context.Context) error {
		return nil
	})
	assert.True(t, errors.Is(err, storage.ErrVersionConflict))
	assert.True(t, stderrors.Is(err, storage.ErrVersionConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate_StandardErrorsIs(t *testing.T) {
	classified := errors.New("classified by caller")
	tests := []struct {
		code string
		want error
	}{
		{pgerrcode.SerializationFailure, storage.ErrVersionConflict},
		{pgerrcode.DeadlockDetected, storage.ErrVersionConflict},
		{pgerrcode.UniqueViolation, storage.ErrAlreadyExists},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tc.code}
			err := translate(errors.Wrap(apperr.Mark(pgErr, classified), "append"))
			assert.True(t, stderrors.Is(err, tc.want))
			assert.True(t, stderrors.Is(err, classified), "earlier classification is kept")
			var got *pgconn.PgError
			require.True(t, stderrors.As(err, &got))
			assert.Equal(t, tc.code, got.Code)
		})
	}

	plain := errors.New("boom")
	assert.Equal(t, plain, translate(plain))
}

func TestParseIsolation(t *testing.T) {
	assert.Equal(t, pgx.Serializable, ParseIsolation(""))
	assert.Equal(t, pgx.Serializable, ParseIsolation("serializable"))
	assert.Equal(t, pgx.RepeatableRead, ParseIsolation("repeatable_read"))
	assert.Equal(t, pgx.ReadCommitted, ParseIsolation("read_committed"))
}
