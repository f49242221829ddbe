package audit

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectbeheer/backend/internal/actor"
	"projectbeheer/backend/internal/audit/domain"
	auditrepo "projectbeheer/backend/internal/audit/repository"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/storage/memory"
	"projectbeheer/backend/internal/versioned"
)

type item struct {
	versioned.Meta
	Label string `json:"label"`
}

func (*item) Table() string      { return "items" }
func (*item) SchemaVersion() int { return 1 }

func snap(t *testing.T, version int64, label string) *versioned.Snapshot {
	t.Helper()
	s, err := versioned.Capture(&item{Meta: versioned.Meta{ID: "i1", Version: version}, Label: label})
	require.NoError(t, err)
	return s
}

type failingRepo struct {
	auditrepo.Repository
	err error
}

func (f failingRepo) Append(context.Context, *domain.Entry) error { return f.err }

func (f failingRepo) ListByEntity(context.Context, string, string) ([]*domain.Entry, error) {
	return nil, nil
}

type recordingEmitter struct {
	mu      sync.Mutex
	entries []*domain.Entry
}

func (r *recordingEmitter) Emit(_ context.Context, e *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func TestRecord_AttributesActor(t *testing.T) {
	db := memory.New()
	repo := auditrepo.NewMemoryRepository(db)
	rec := NewRecorder(repo)

	ctx, err := actor.With(context.Background(), "u1", "kickoff")
	require.NoError(t, err)
	require.NoError(t, rec.Record(ctx, domain.Change{
		Action: domain.ActionCreate, EntityTable: "items", EntityID: "i1", VersionAfter: 1, After: snap(t, 1, "a"),
	}))

	entries, err := repo.ListByEntity(context.Background(), "items", "i1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "u1", e.ActorID.String)
	assert.Equal(t, "kickoff", e.Note.String)
	assert.Nil(t, e.Before)
	assert.NotNil(t, e.After)
	assert.False(t, e.OccurredAt.IsZero())
}

func TestRecord_SystemChange(t *testing.T) {
	repo := auditrepo.NewMemoryRepository(memory.New())
	require.NoError(t, NewRecorder(repo).Record(context.Background(), domain.Change{
		Action: domain.ActionDelete, EntityTable: "items", EntityID: "i1", VersionAfter: 2, Before: snap(t, 1, "a"),
	}))

	entries, err := repo.ListByEntity(context.Background(), "items", "i1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].ActorID.Valid)
	assert.False(t, entries[0].Note.Valid)
	assert.Nil(t, entries[0].After)
}

func TestRecord_SkippedWhenUntracked(t *testing.T) {
	db := memory.New()
	repo := auditrepo.NewMemoryRepository(db)
	rec := NewRecorder(repo)

	err := storage.Untracked(context.Background(), db, func(ctx context.Context) error {
		return rec.Record(ctx, domain.Change{
			Action: domain.ActionCreate, EntityTable: "items", EntityID: "i1", VersionAfter: 1, After: snap(t, 1, "a"),
		})
	})
	require.NoError(t, err)

	entries, err := repo.ListByEntity(context.Background(), "items", "i1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecord_AppendFailureIsMarked(t *testing.T) {
	rec := NewRecorder(failingRepo{err: errors.New("disk full")})
	err := rec.Record(context.Background(), domain.Change{
		Action: domain.ActionCreate, EntityTable: "items", EntityID: "i1", VersionAfter: 1, After: snap(t, 1, "a"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWriteFailed))
	assert.True(t, stderrors.Is(err, ErrWriteFailed))
	assert.ErrorContains(t, err, "disk full")
}

func TestRecord_CreateOverExistingHistory(t *testing.T) {
	db := memory.New()
	repo := auditrepo.NewMemoryRepository(db)
	rec := NewRecorder(repo)
	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, domain.Change{
		Action: domain.ActionCreate, EntityTable: "items", EntityID: "i1", VersionAfter: 1, After: snap(t, 1, "a"),
	}))
	require.NoError(t, rec.Record(ctx, domain.Change{
		Action: domain.ActionDelete, EntityTable: "items", EntityID: "i1", VersionAfter: 2, Before: snap(t, 1, "a"),
	}))

	err := rec.Record(ctx, domain.Change{
		Action: domain.ActionCreate, EntityTable: "items", EntityID: "i1", VersionAfter: 1, After: snap(t, 1, "b"),
	})
	assert.True(t, stderrors.Is(err, storage.ErrAlreadyExists))
	assert.False(t, stderrors.Is(err, ErrWriteFailed))

	require.NoError(t, rec.Record(ctx, domain.Change{
		Action: domain.ActionCreate, EntityTable: "other", EntityID: "i1", VersionAfter: 1, After: snap(t, 1, "c"),
	}), "history is per table")
}

func TestRecord_RejectsMalformedChange(t *testing.T) {
	rec := NewRecorder(auditrepo.NewMemoryRepository(memory.New()))
	tests := []struct {
		name string
		c    domain.Change
	}{
		{"unknown action", domain.Change{Action: "upsert", EntityTable: "items", EntityID: "i1", VersionAfter: 1}},
		{"missing id", domain.Change{Action: domain.ActionCreate, EntityTable: "items", VersionAfter: 1, After: snap(t, 1, "a")}},
		{"zero version", domain.Change{Action: domain.ActionCreate, EntityTable: "items", EntityID: "i1", After: snap(t, 1, "a")}},
		{"create with before", domain.Change{Action: domain.ActionCreate, EntityTable: "items", EntityID: "i1", VersionAfter: 1, Before: snap(t, 1, "a"), After: snap(t, 1, "a")}},
		{"update without before", domain.Change{Action: domain.ActionUpdate, EntityTable: "items", EntityID: "i1", VersionAfter: 2, After: snap(t, 2, "b")}},
		{"delete with after", domain.Change{Action: domain.ActionDelete, EntityTable: "items", EntityID: "i1", VersionAfter: 2, Before: snap(t, 1, "a"), After: snap(t, 2, "b")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := rec.Record(context.Background(), tc.c)
			assert.True(t, errors.Is(err, ErrWriteFailed))
		})
	}
}

func TestRecord_EmitsOnlyAfterCommit(t *testing.T) {
	db := memory.New()
	em := &recordingEmitter{}
	rec := NewRecorder(auditrepo.NewMemoryRepository(db), em)
	change := domain.Change{Action: domain.ActionCreate, EntityTable: "items", EntityID: "i1", VersionAfter: 1, After: snap(t, 1, "a")}

	rollback := errors.New("rollback")
	err := db.InTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, rec.Record(ctx, change))
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	require.NoError(t, db.InTx(context.Background(), func(ctx context.Context) error {
		return rec.Record(ctx, change)
	}))
	assert.Eventually(t, func() bool { return em.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, em.count())
}
