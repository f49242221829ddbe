package domain

import (
	"time"

	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/versioned"
)

// Action is the kind of mutation an audit entry describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Entry is one committed mutation of a tracked entity. Entries are append-only
// and outlive the entity they describe.
type Entry struct {
	ID           string              `json:"id"`
	EntityTable  string              `json:"entity_table"`
	EntityID     string              `json:"entity_id"`
	VersionAfter int64               `json:"version_after"`
	Action       Action              `json:"action"`
	ActorID      null.String         `json:"actor_id"`
	OccurredAt   time.Time           `json:"occurred_at"`
	Before       *versioned.Snapshot `json:"before"`
	After        *versioned.Snapshot `json:"after"`
	Note         null.String         `json:"note"`
}

// Change is what a mutation reports to the audit recorder. Before is nil for
// creates and After is nil for deletes.
type Change struct {
	Action       Action
	EntityTable  string
	EntityID     string
	VersionAfter int64
	Before       *versioned.Snapshot
	After        *versioned.Snapshot
}

// FieldChange is one differing field between two versions.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}
