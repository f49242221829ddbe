package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"

	"projectbeheer/backend/internal/audit/domain"
	"projectbeheer/backend/internal/storage/memory"
)

const memoryCollection = "audit_entries"

// MemoryRepository stores audit entries in an in-memory database so that they
// commit and roll back together with the entities they describe.
type MemoryRepository struct {
	c *memory.Collection
}

// NewMemoryRepository returns an audit repository backed by db.
func NewMemoryRepository(db *memory.DB) *MemoryRepository {
	return &MemoryRepository{c: db.Collection(memoryCollection)}
}

// Append implements Repository.
func (r *MemoryRepository) Append(ctx context.Context, e *domain.Entry) error {
	return r.c.Mutate(ctx, func(docs map[string][]byte) error {
		if _, ok := docs[e.ID]; ok {
			return errors.Newf("audit entry %s already exists", e.ID)
		}
		for _, raw := range docs {
			prev, err := decodeEntry(raw)
			if err != nil {
				return err
			}
			if prev.EntityTable != e.EntityTable || prev.EntityID != e.EntityID {
				continue
			}
			if prev.VersionAfter == e.VersionAfter {
				return errors.Newf("audit entry for %s %s version %d already exists", e.EntityTable, e.EntityID, e.VersionAfter)
			}
			if prev.OccurredAt.After(e.OccurredAt) {
				e.OccurredAt = prev.OccurredAt
			}
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return errors.Wrap(err, "encode audit entry")
		}
		docs[e.ID] = raw
		return nil
	})
}

// ListByEntity implements Repository.
func (r *MemoryRepository) ListByEntity(ctx context.Context, table, id string) ([]*domain.Entry, error) {
	out, err := r.filter(ctx, func(e *domain.Entry) bool {
		return e.EntityTable == table && e.EntityID == id
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionAfter > out[j].VersionAfter })
	return out, nil
}

// GetByVersion implements Repository.
func (r *MemoryRepository) GetByVersion(ctx context.Context, table, id string, version int64) (*domain.Entry, error) {
	out, err := r.filter(ctx, func(e *domain.Entry) bool {
		return e.EntityTable == table && e.EntityID == id && e.VersionAfter == version
	})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

// List implements Repository.
func (r *MemoryRepository) List(ctx context.Context, f Filter) ([]*domain.Entry, error) {
	out, err := r.filter(ctx, func(e *domain.Entry) bool {
		if f.ActorID != "" && e.ActorID.String != f.ActorID {
			return false
		}
		if f.EntityTable != "" && e.EntityTable != f.EntityTable {
			return false
		}
		return f.Since.IsZero() || !e.OccurredAt.Before(f.Since)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) filter(ctx context.Context, keep func(*domain.Entry) bool) ([]*domain.Entry, error) {
	var out []*domain.Entry
	err := r.c.View(ctx, func(docs map[string][]byte) error {
		for _, raw := range docs {
			e, err := decodeEntry(raw)
			if err != nil {
				return err
			}
			if keep(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func decodeEntry(raw []byte) (*domain.Entry, error) {
	var e domain.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errors.Wrap(err, "decode audit entry")
	}
	return &e, nil
}
