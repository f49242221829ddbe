// Package versioning applies optimistic-concurrency mutations to versioned
// entities and records each committed mutation in the audit trail within the
// same transaction.
package versioning

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/guregu/null/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"projectbeheer/backend/internal/audit/domain"
	"projectbeheer/backend/internal/logging"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/versioned"
)

const instrumentationName = "projectbeheer/backend/internal/versioning"

// Recorder receives one change per committed mutation. It runs inside the
// mutation's transaction; an error aborts the mutation.
type Recorder interface {
	Record(ctx context.Context, c domain.Change) error
}

// Option configures a Tracker.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides how ids are assigned to created entities.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// Tracker mutates entities of one table. It never retries: a stale expected
// version fails with storage.ErrVersionConflict and the caller decides
// whether to re-read and try again.
type Tracker[T versioned.Entity] struct {
	tx    storage.Transactor
	table storage.Table[T]
	rec   Recorder
	opts  options

	tracer    trace.Tracer
	mutations metric.Int64Counter
	conflicts metric.Int64Counter
}

// New returns a Tracker for table. rec may be nil for untracked entity types.
func New[T versioned.Entity](tx storage.Transactor, table storage.Table[T], rec Recorder, opts ...Option) *Tracker[T] {
	o := options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	meter := otel.Meter(instrumentationName)
	mutations, _ := meter.Int64Counter("versioning.mutations",
		metric.WithDescription("Committed mutations of versioned entities."))
	conflicts, _ := meter.Int64Counter("versioning.conflicts",
		metric.WithDescription("Mutations rejected because of a stale expected version."))
	return &Tracker[T]{
		tx:        tx,
		table:     table,
		rec:       rec,
		opts:      o,
		tracer:    otel.Tracer(instrumentationName),
		mutations: mutations,
		conflicts: conflicts,
	}
}

// Get returns the current state of the entity.
func (t *Tracker[T]) Get(ctx context.Context, id string) (T, error) {
	return t.table.Get(ctx, id)
}

// List returns entities whose field equals value, oldest first.
func (t *Tracker[T]) List(ctx context.Context, field, value string) ([]T, error) {
	return t.table.ListBy(ctx, field, value)
}

// Create stores e as version 1. An empty id is assigned.
func (t *Tracker[T]) Create(ctx context.Context, e T) (T, error) {
	m := e.Metadata()
	if m.ID == "" {
		m.ID = t.opts.newID()
	}
	m.Version = 1
	m.CreatedAt = t.opts.now()
	m.UpdatedAt = null.Time{}

	err := t.run(ctx, domain.ActionCreate, e.Table(), m.ID, func(ctx context.Context) error {
		if err := t.table.Insert(ctx, e); err != nil {
			return err
		}
		after, err := versioned.Capture(e)
		if err != nil {
			return err
		}
		return t.record(ctx, domain.Change{
			Action: domain.ActionCreate, EntityTable: e.Table(), EntityID: m.ID, VersionAfter: 1, After: after,
		})
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return e, nil
}

// Update re-reads the entity, checks that its version still equals expected,
// applies mutate to a private copy and writes it back as version expected+1.
// mutate cannot change the id, version or timestamps.
func (t *Tracker[T]) Update(ctx context.Context, id string, expected int64, mutate func(T) error) (T, error) {
	var out T
	err := t.run(ctx, domain.ActionUpdate, "", id, func(ctx context.Context) error {
		cur, before, err := t.load(ctx, id, expected)
		if err != nil {
			return err
		}
		m := cur.Metadata()
		meta := *m
		if err := mutate(cur); err != nil {
			return err
		}
		*m = meta
		m.Version = expected + 1
		m.UpdatedAt = null.TimeFrom(t.opts.now())

		if err := t.table.UpdateIfVersion(ctx, cur, expected); err != nil {
			return err
		}
		after, err := versioned.Capture(cur)
		if err != nil {
			return err
		}
		if err := t.record(ctx, domain.Change{
			Action: domain.ActionUpdate, EntityTable: cur.Table(), EntityID: id,
			VersionAfter: m.Version, Before: before, After: after,
		}); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Patch is Update with a JSON merge of patch onto the current state.
func (t *Tracker[T]) Patch(ctx context.Context, id string, expected int64, patch json.RawMessage) (T, error) {
	return t.Update(ctx, id, expected, func(e T) error {
		if err := json.Unmarshal(patch, e); err != nil {
			return errors.Wrap(err, "apply patch")
		}
		return nil
	})
}

// Delete removes the entity if its version still equals expected. The
// deletion is recorded as version expected+1.
func (t *Tracker[T]) Delete(ctx context.Context, id string, expected int64) error {
	return t.run(ctx, domain.ActionDelete, "", id, func(ctx context.Context) error {
		cur, before, err := t.load(ctx, id, expected)
		if err != nil {
			return err
		}
		if err := t.table.DeleteIfVersion(ctx, id, expected); err != nil {
			return err
		}
		return t.record(ctx, domain.Change{
			Action: domain.ActionDelete, EntityTable: cur.Table(), EntityID: id,
			VersionAfter: expected + 1, Before: before,
		})
	})
}

func (t *Tracker[T]) load(ctx context.Context, id string, expected int64) (T, *versioned.Snapshot, error) {
	cur, err := t.table.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, nil, err
	}
	if v := cur.Metadata().Version; v != expected {
		var zero T
		return zero, nil, storage.VersionConflict(cur.Table(), id, expected, v)
	}
	before, err := versioned.Capture(cur)
	if err != nil {
		var zero T
		return zero, nil, err
	}
	return cur, before, nil
}

func (t *Tracker[T]) record(ctx context.Context, c domain.Change) error {
	if t.rec == nil {
		return nil
	}
	return t.rec.Record(ctx, c)
}

// run executes fn in a transaction with tracing, metrics and logging.
func (t *Tracker[T]) run(ctx context.Context, action domain.Action, table, id string, fn func(ctx context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, "versioning."+string(action), trace.WithAttributes(
		attribute.String("entity.id", id),
	))
	defer span.End()
	if table != "" {
		span.SetAttributes(attribute.String("entity.table", table))
	}

	err := t.tx.InTx(ctx, fn)
	attrs := metric.WithAttributes(attribute.String("action", string(action)))
	switch {
	case err == nil:
		t.mutations.Add(ctx, 1, attrs)
	case errors.Is(err, storage.ErrVersionConflict):
		t.conflicts.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, "version conflict")
		logging.FromContext(ctx).Info("versioning: conflict", "action", action, "entity_id", id, "error", err)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
