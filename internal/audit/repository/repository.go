package repository

import (
	"context"
	"time"

	"projectbeheer/backend/internal/audit/domain"
)

// Filter narrows List. Zero fields are ignored; Limit is required.
type Filter struct {
	ActorID     string
	EntityTable string
	Since       time.Time
	Limit       int
}

// Repository defines persistence for audit entries. Writes join the
// transaction carried by ctx.
type Repository interface {
	// Append stores e. OccurredAt is clamped so that it never precedes an
	// earlier entry of the same entity; the stored value is written back to e.
	Append(ctx context.Context, e *domain.Entry) error
	// ListByEntity returns the entity's entries, most recent first.
	ListByEntity(ctx context.Context, table, id string) ([]*domain.Entry, error)
	// GetByVersion returns the entry that produced version, or nil if none.
	GetByVersion(ctx context.Context, table, id string, version int64) (*domain.Entry, error)
	// List returns entries matching f, most recent first.
	List(ctx context.Context, f Filter) ([]*domain.Entry, error)
}
