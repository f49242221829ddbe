// Package audit records tracked mutations and answers history queries over
// the recorded entries.
package audit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/actor"
	"projectbeheer/backend/internal/audit/domain"
	auditrepo "projectbeheer/backend/internal/audit/repository"
	"projectbeheer/backend/internal/logging"
	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/telemetry"
)

// ErrWriteFailed marks errors caused by a failed audit write. The mutation
// that triggered the write is rolled back with it.
var ErrWriteFailed = errors.New("audit write failed")

// Recorder writes audit entries inside the caller's transaction.
type Recorder struct {
	repo     auditrepo.Repository
	emitters []telemetry.EventEmitter
	now      func() time.Time
}

// NewRecorder returns a Recorder persisting to repo. Emitters receive each
// entry after its transaction commits.
func NewRecorder(repo auditrepo.Repository, emitters ...telemetry.EventEmitter) *Recorder {
	return &Recorder{repo: repo, emitters: emitters, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends an entry for c. It is a no-op when tracking is disabled on
// ctx. The actor and note are taken from ctx; without an actor the entry is
// attributed to the system.
//
// A create for an id that already has history, left by a deleted entity, is
// rejected with storage.ErrAlreadyExists: ids are never reused within a table.
func (r *Recorder) Record(ctx context.Context, c domain.Change) error {
	if !storage.TrackingEnabled(ctx) {
		return nil
	}
	if err := validate(c); err != nil {
		return apperr.Mark(err, ErrWriteFailed)
	}
	if c.Action == domain.ActionCreate {
		if err := r.checkUnused(ctx, c.EntityTable, c.EntityID); err != nil {
			return err
		}
	}

	e := &domain.Entry{
		ID:           uuid.New().String(),
		EntityTable:  c.EntityTable,
		EntityID:     c.EntityID,
		VersionAfter: c.VersionAfter,
		Action:       c.Action,
		OccurredAt:   r.now(),
		Before:       c.Before,
		After:        c.After,
	}
	if a, ok := actor.Current(ctx); ok {
		e.ActorID = null.StringFrom(a.ID)
		e.Note = null.NewString(a.Note, a.Note != "")
	}

	if err := r.repo.Append(ctx, e); err != nil {
		logging.FromContext(ctx).Error("audit: append failed",
			"entity_table", e.EntityTable,
			"entity_id", e.EntityID,
			"version_after", e.VersionAfter,
			"error", err)
		return apperr.Mark(errors.Wrapf(err, "audit %s %s v%d", e.EntityTable, e.EntityID, e.VersionAfter), ErrWriteFailed)
	}

	for _, em := range r.emitters {
		storage.AfterCommit(ctx, func(ctx context.Context) {
			telemetry.EmitAsync(em, ctx, e)
		})
	}
	return nil
}

func (r *Recorder) checkUnused(ctx context.Context, table, id string) error {
	prior, err := r.repo.ListByEntity(ctx, table, id)
	if err != nil {
		return apperr.Mark(errors.Wrapf(err, "audit %s %s: read history", table, id), ErrWriteFailed)
	}
	if len(prior) > 0 {
		return errors.Wrapf(storage.ErrAlreadyExists, "%s %s has history up to version %d", table, id, prior[0].VersionAfter)
	}
	return nil
}

func validate(c domain.Change) error {
	if !c.Action.Valid() {
		return errors.Newf("unknown action %q", c.Action)
	}
	if c.EntityTable == "" || c.EntityID == "" {
		return errors.New("entity table and id are required")
	}
	if c.VersionAfter < 1 {
		return errors.Newf("invalid version %d", c.VersionAfter)
	}
	switch c.Action {
	case domain.ActionCreate:
		if c.Before != nil || c.After == nil {
			return errors.New("create needs an after snapshot only")
		}
	case domain.ActionUpdate:
		if c.Before == nil || c.After == nil {
			return errors.New("update needs both snapshots")
		}
	case domain.ActionDelete:
		if c.Before == nil || c.After != nil {
			return errors.New("delete needs a before snapshot only")
		}
	}
	return nil
}
