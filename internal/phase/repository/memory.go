package repository

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"projectbeheer/backend/internal/phase/domain"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/storage/memory"
)

// MemoryRepository keeps documents and comments in an in-memory database.
type MemoryRepository struct {
	docs     *memory.Collection
	comments *memory.Collection
}

// NewMemoryRepository returns a phase repository backed by db.
func NewMemoryRepository(db *memory.DB) *MemoryRepository {
	return &MemoryRepository{
		docs:     db.Collection("phase_documents"),
		comments: db.Collection("phase_comments"),
	}
}

// AddDocument implements Repository.
func (r *MemoryRepository) AddDocument(ctx context.Context, d *domain.Document) error {
	return insertDoc(ctx, r.docs, d.ID, d)
}

// ListDocuments implements Repository.
func (r *MemoryRepository) ListDocuments(ctx context.Context, phaseIDs []string) ([]*domain.Document, error) {
	out, err := listDocs(ctx, r.docs, func(d *domain.Document) bool { return slices.Contains(phaseIDs, d.PhaseID) })
	if err != nil {
		return nil, err
	}
	sortByCreated(out, func(d *domain.Document) (time.Time, string) { return d.CreatedAt, d.ID })
	return out, nil
}

// AddComment implements Repository.
func (r *MemoryRepository) AddComment(ctx context.Context, c *domain.Comment) error {
	return insertDoc(ctx, r.comments, c.ID, c)
}

// GetComment implements Repository.
func (r *MemoryRepository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	out, err := listDocs(ctx, r.comments, func(c *domain.Comment) bool { return c.ID == id })
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(storage.ErrNotFound, "comment %s", id)
	}
	return out[0], nil
}

// UpdateCommentState implements Repository.
func (r *MemoryRepository) UpdateCommentState(ctx context.Context, c *domain.Comment) error {
	return r.comments.Mutate(ctx, func(docs map[string][]byte) error {
		raw, ok := docs[c.ID]
		if !ok {
			return errors.Wrapf(storage.ErrNotFound, "comment %s", c.ID)
		}
		var stored domain.Comment
		if err := json.Unmarshal(raw, &stored); err != nil {
			return errors.Wrap(err, "decode comment")
		}
		stored.State = c.State
		stored.PublishedAt = c.PublishedAt
		out, err := json.Marshal(&stored)
		if err != nil {
			return errors.Wrap(err, "encode comment")
		}
		docs[c.ID] = out
		return nil
	})
}

// ListComments implements Repository.
func (r *MemoryRepository) ListComments(ctx context.Context, phaseIDs []string) ([]*domain.Comment, error) {
	out, err := listDocs(ctx, r.comments, func(c *domain.Comment) bool { return slices.Contains(phaseIDs, c.PhaseID) })
	if err != nil {
		return nil, err
	}
	sortByCreated(out, func(c *domain.Comment) (time.Time, string) { return c.CreatedAt, c.ID })
	return out, nil
}

// DeleteByPhase implements Repository.
func (r *MemoryRepository) DeleteByPhase(ctx context.Context, phaseID string) error {
	for _, c := range []*memory.Collection{r.docs, r.comments} {
		err := c.Mutate(ctx, func(docs map[string][]byte) error {
			for id, raw := range docs {
				var ref struct {
					PhaseID string `json:"phase_id"`
				}
				if err := json.Unmarshal(raw, &ref); err != nil {
					return errors.Wrap(err, "decode record")
				}
				if ref.PhaseID == phaseID {
					delete(docs, id)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func insertDoc(ctx context.Context, c *memory.Collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	return c.Mutate(ctx, func(docs map[string][]byte) error {
		if _, ok := docs[id]; ok {
			return errors.Wrapf(storage.ErrAlreadyExists, "record %s", id)
		}
		docs[id] = raw
		return nil
	})
}

func listDocs[T any](ctx context.Context, c *memory.Collection, keep func(*T) bool) ([]*T, error) {
	out := []*T{}
	err := c.View(ctx, func(docs map[string][]byte) error {
		for _, raw := range docs {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return errors.Wrap(err, "decode record")
			}
			if keep(v) {
				out = append(out, v)
			}
		}
		return nil
	})
	return out, err
}

func sortByCreated[T any](s []*T, key func(*T) (time.Time, string)) {
	sort.Slice(s, func(i, j int) bool {
		ti, idi := key(s[i])
		tj, idj := key(s[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}
