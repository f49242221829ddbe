package repository

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
	"github.com/jackc/pgx/v5"

	"projectbeheer/backend/internal/phase/domain"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/storage/postgres"
)

var documentColumns = []string{
	"id", "phase_id", "name", "description", "kind", "file_name",
	"content_type", "size_bytes", "uploaded_by", "supplier_visible", "created_at",
}

var commentColumns = []string{
	"id", "phase_id", "author_id", "type", "state", "body", "created_at", "published_at",
}

// PostgresRepository stores documents and comments in phase_documents and
// phase_comments.
type PostgresRepository struct {
	pool postgres.Executor
}

// NewPostgresRepository returns a phase repository backed by pool.
func NewPostgresRepository(pool postgres.Executor) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// AddDocument implements Repository.
func (r *PostgresRepository) AddDocument(ctx context.Context, d *domain.Document) error {
	q := postgres.NewQueryBuilder().
		Insert("phase_documents").
		Columns(documentColumns...).
		Values(d.ID, d.PhaseID, d.Name, d.Description.Ptr(), d.Kind, d.FileName,
			d.ContentType, d.SizeBytes.Ptr(), d.UploadedBy, d.SupplierVisible, d.CreatedAt)
	return r.exec(ctx, q, "insert document")
}

// ListDocuments implements Repository.
func (r *PostgresRepository) ListDocuments(ctx context.Context, phaseIDs []string) ([]*domain.Document, error) {
	if len(phaseIDs) == 0 {
		return []*domain.Document{}, nil
	}
	q := postgres.NewQueryBuilder().
		Select(documentColumns...).
		From("phase_documents").
		Where(squirrel.Eq{"phase_id": phaseIDs}).
		OrderBy("created_at", "id")
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build document query")
	}
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query documents")
	}
	defer rows.Close()

	out := []*domain.Document{}
	for rows.Next() {
		var (
			d           domain.Document
			description *string
			size        *int64
		)
		if err := rows.Scan(&d.ID, &d.PhaseID, &d.Name, &description, &d.Kind, &d.FileName,
			&d.ContentType, &size, &d.UploadedBy, &d.SupplierVisible, &d.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		d.Description = null.StringFromPtr(description)
		d.SizeBytes = null.IntFromPtr(size)
		out = append(out, &d)
	}
	return out, errors.Wrap(rows.Err(), "query documents")
}

// AddComment implements Repository.
func (r *PostgresRepository) AddComment(ctx context.Context, c *domain.Comment) error {
	q := postgres.NewQueryBuilder().
		Insert("phase_comments").
		Columns(commentColumns...).
		Values(c.ID, c.PhaseID, c.AuthorID, string(c.Type), string(c.State), c.Body, c.CreatedAt, c.PublishedAt.Ptr())
	return r.exec(ctx, q, "insert comment")
}

// GetComment implements Repository.
func (r *PostgresRepository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	comments, err := r.queryComments(ctx, squirrel.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, errors.Wrapf(storage.ErrNotFound, "comment %s", id)
	}
	return comments[0], nil
}

// UpdateCommentState implements Repository.
func (r *PostgresRepository) UpdateCommentState(ctx context.Context, c *domain.Comment) error {
	q := postgres.NewQueryBuilder().
		Update("phase_comments").
		Set("state", string(c.State)).
		Set("published_at", c.PublishedAt.Ptr()).
		Where(squirrel.Eq{"id": c.ID})
	sql, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "build comment update")
	}
	tag, err := postgres.Conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "update comment")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(storage.ErrNotFound, "comment %s", c.ID)
	}
	return nil
}

// ListComments implements Repository.
func (r *PostgresRepository) ListComments(ctx context.Context, phaseIDs []string) ([]*domain.Comment, error) {
	if len(phaseIDs) == 0 {
		return []*domain.Comment{}, nil
	}
	return r.queryComments(ctx, squirrel.Eq{"phase_id": phaseIDs})
}

func (r *PostgresRepository) queryComments(ctx context.Context, where squirrel.Sqlizer) ([]*domain.Comment, error) {
	sql, args, err := postgres.NewQueryBuilder().
		Select(commentColumns...).
		From("phase_comments").
		Where(where).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build comment query")
	}
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query comments")
	}
	defer rows.Close()

	out := []*domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "query comments")
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var (
		c           domain.Comment
		typ, state  string
		publishedAt *time.Time
	)
	if err := row.Scan(&c.ID, &c.PhaseID, &c.AuthorID, &typ, &state, &c.Body, &c.CreatedAt, &publishedAt); err != nil {
		return nil, errors.Wrap(err, "scan comment")
	}
	c.Type = domain.CommentType(typ)
	c.State = domain.CommentState(state)
	c.PublishedAt = null.TimeFromPtr(publishedAt)
	return &c, nil
}

// DeleteByPhase implements Repository. The phase foreign keys also cascade.
func (r *PostgresRepository) DeleteByPhase(ctx context.Context, phaseID string) error {
	for _, table := range []string{"phase_comments", "phase_documents"} {
		q := postgres.NewQueryBuilder().Delete(table).Where(squirrel.Eq{"phase_id": phaseID})
		if err := r.exec(ctx, q, "delete from "+table); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, q squirrel.Sqlizer, what string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return errors.Wrapf(err, "build %s", what)
	}
	if _, err := postgres.Conn(ctx, r.pool).Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, what)
	}
	return nil
}
