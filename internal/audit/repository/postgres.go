package repository

import (
	"context"
	"encoding/json"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
	"github.com/jackc/pgx/v5"

	"projectbeheer/backend/internal/audit/domain"
	"projectbeheer/backend/internal/storage/postgres"
	"projectbeheer/backend/internal/versioned"
)

const entryColumns = "id, entity_table, entity_id, version_after, action, actor_id, occurred_at, before, after, note"

// The per-entity max keeps occurred_at non-decreasing in commit order: the
// entity row is already locked by the conditional update, so the previous
// entry of the same entity is visible here.
const appendEntrySQL = `INSERT INTO audit_entries (` + entryColumns + `)
VALUES ($1, $2, $3, $4, $5, $6,
	GREATEST($7::timestamptz, (SELECT max(occurred_at) FROM audit_entries WHERE entity_table = $2 AND entity_id = $3)),
	$8, $9, $10)
RETURNING occurred_at`

// PostgresRepository stores audit entries in the audit_entries table.
type PostgresRepository struct {
	pool postgres.Executor
}

// NewPostgresRepository returns an audit repository backed by pool.
func NewPostgresRepository(pool postgres.Executor) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append implements Repository.
func (r *PostgresRepository) Append(ctx context.Context, e *domain.Entry) error {
	before, err := snapshotArg(e.Before)
	if err != nil {
		return err
	}
	after, err := snapshotArg(e.After)
	if err != nil {
		return err
	}
	row := postgres.Conn(ctx, r.pool).QueryRow(ctx, appendEntrySQL,
		e.ID, e.EntityTable, e.EntityID, e.VersionAfter, string(e.Action),
		e.ActorID.Ptr(), e.OccurredAt, before, after, e.Note.Ptr(),
	)
	if err := row.Scan(&e.OccurredAt); err != nil {
		return errors.Wrapf(err, "append audit entry for %s %s", e.EntityTable, e.EntityID)
	}
	return nil
}

// ListByEntity implements Repository.
func (r *PostgresRepository) ListByEntity(ctx context.Context, table, id string) ([]*domain.Entry, error) {
	q := postgres.NewQueryBuilder().
		Select(entryColumns).
		From("audit_entries").
		Where(squirrel.Eq{"entity_table": table, "entity_id": id}).
		OrderBy("version_after DESC")
	return r.query(ctx, q)
}

// GetByVersion implements Repository.
func (r *PostgresRepository) GetByVersion(ctx context.Context, table, id string, version int64) (*domain.Entry, error) {
	q := postgres.NewQueryBuilder().
		Select(entryColumns).
		From("audit_entries").
		Where(squirrel.Eq{"entity_table": table, "entity_id": id, "version_after": version})
	entries, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// List implements Repository.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*domain.Entry, error) {
	q := postgres.NewQueryBuilder().
		Select(entryColumns).
		From("audit_entries").
		OrderBy("occurred_at DESC", "id").
		Limit(uint64(f.Limit))
	if f.ActorID != "" {
		q = q.Where(squirrel.Eq{"actor_id": f.ActorID})
	}
	if f.EntityTable != "" {
		q = q.Where(squirrel.Eq{"entity_table": f.EntityTable})
	}
	if !f.Since.IsZero() {
		q = q.Where(squirrel.GtOrEq{"occurred_at": f.Since})
	}
	return r.query(ctx, q)
}

func (r *PostgresRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*domain.Entry, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build audit query")
	}
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query audit entries")
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "query audit entries")
	}
	return out, nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e             domain.Entry
		action        string
		actorID, note *string
		before, after []byte
	)
	if err := row.Scan(&e.ID, &e.EntityTable, &e.EntityID, &e.VersionAfter, &action,
		&actorID, &e.OccurredAt, &before, &after, &note); err != nil {
		return nil, errors.Wrap(err, "scan audit entry")
	}
	e.Action = domain.Action(action)
	e.ActorID = null.StringFromPtr(actorID)
	e.Note = null.StringFromPtr(note)
	var err error
	if e.Before, err = decodeSnapshot(before); err != nil {
		return nil, err
	}
	if e.After, err = decodeSnapshot(after); err != nil {
		return nil, err
	}
	return &e, nil
}

func snapshotArg(s *versioned.Snapshot) (any, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}
	return raw, nil
}

func decodeSnapshot(raw []byte) (*versioned.Snapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s versioned.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return &s, nil
}
