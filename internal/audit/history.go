package audit

import (
	"context"
	"reflect"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"projectbeheer/backend/internal/audit/domain"
	auditrepo "projectbeheer/backend/internal/audit/repository"
	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/versioned"
)

// DefaultMaxLimit caps activity queries when no limit is configured.
const DefaultMaxLimit = 200

// History answers read queries over recorded entries.
type History struct {
	repo     auditrepo.Repository
	maxLimit int
}

// NewHistory returns a History over repo. maxLimit <= 0 uses DefaultMaxLimit.
func NewHistory(repo auditrepo.Repository, maxLimit int) *History {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &History{repo: repo, maxLimit: maxLimit}
}

// History returns every entry of one entity, most recent first. Entries of a
// deleted entity are still returned.
func (h *History) History(ctx context.Context, table, id string) ([]*domain.Entry, error) {
	return h.repo.ListByEntity(ctx, table, id)
}

// Version returns the state of the entity right after version was committed.
// It returns storage.ErrNotFound when the version is unknown or is the
// deletion.
func (h *History) Version(ctx context.Context, table, id string, version int64) (*versioned.Snapshot, error) {
	e, err := h.repo.GetByVersion(ctx, table, id, version)
	if err != nil {
		return nil, err
	}
	if e == nil || e.After == nil {
		return nil, errors.Wrapf(storage.ErrNotFound, "%s %s version %d", table, id, version)
	}
	return e.After, nil
}

// Compare returns the fields whose values differ between two versions.
func (h *History) Compare(ctx context.Context, table, id string, v1, v2 int64) (map[string]domain.FieldChange, error) {
	a, err := h.Version(ctx, table, id, v1)
	if err != nil {
		return nil, err
	}
	b, err := h.Version(ctx, table, id, v2)
	if err != nil {
		return nil, err
	}
	return Diff(a, b)
}

// Diff compares two snapshots field by field. A field missing on one side
// is reported with a nil value on that side.
func Diff(a, b *versioned.Snapshot) (map[string]domain.FieldChange, error) {
	fa, err := a.Fields()
	if err != nil {
		return nil, err
	}
	fb, err := b.Fields()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(fa)+len(fb))
	for k := range fa {
		keys = append(keys, k)
	}
	for k := range fb {
		if _, ok := fa[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := map[string]domain.FieldChange{}
	for _, k := range keys {
		if !reflect.DeepEqual(fa[k], fb[k]) {
			out[k] = domain.FieldChange{Old: fa[k], New: fb[k]}
		}
	}
	return out, nil
}

// ActorActivity returns the most recent changes made by actorID.
func (h *History) ActorActivity(ctx context.Context, actorID string, limit int) ([]*domain.Entry, error) {
	if actorID == "" {
		return nil, apperr.Invalid(errors.New("actor id is required"))
	}
	return h.repo.List(ctx, auditrepo.Filter{ActorID: actorID, Limit: h.clamp(limit)})
}

// TableActivity returns the most recent changes to entities of table.
func (h *History) TableActivity(ctx context.Context, table string, limit int) ([]*domain.Entry, error) {
	if table == "" {
		return nil, apperr.Invalid(errors.New("entity table is required"))
	}
	return h.repo.List(ctx, auditrepo.Filter{EntityTable: table, Limit: h.clamp(limit)})
}

// Recent returns changes that occurred at or after since.
func (h *History) Recent(ctx context.Context, since time.Time, limit int) ([]*domain.Entry, error) {
	return h.repo.List(ctx, auditrepo.Filter{Since: since, Limit: h.clamp(limit)})
}

func (h *History) clamp(limit int) int {
	if limit <= 0 || limit > h.maxLimit {
		return h.maxLimit
	}
	return limit
}
