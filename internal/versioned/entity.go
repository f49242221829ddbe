// Package versioned defines the capability shared by every tracked record:
// a stable id, a monotonic version counter and creation/update timestamps.
package versioned

import (
	"time"

	"github.com/guregu/null/v5"
)

// Entity is implemented by every tracked record type. Implementations embed
// Meta and are used through a pointer.
type Entity interface {
	// Table names the collection the record lives in, e.g. "projects".
	Table() string
	// SchemaVersion is bumped whenever the record's JSON shape changes.
	SchemaVersion() int
	// Metadata exposes the embedded version bookkeeping.
	Metadata() *Meta
}

// Meta holds identity, version and timestamps. Version starts at 1 and
// grows by exactly one per committed mutation.
type Meta struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt null.Time `json:"updated_at"`
}

// Metadata returns m itself so that embedding types satisfy Entity.
func (m *Meta) Metadata() *Meta { return m }
