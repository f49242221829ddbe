// Package domain holds project phases and the documents and comments
// attached to them.
package domain

import (
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/versioned"
)

// Table is the collection phases are stored in.
const Table = "phases"

// Phase is one step of a project. A phase may be assigned to a supplier, in
// which case that supplier can see it and its shared records.
type Phase struct {
	versioned.Meta
	ProjectID     string      `json:"project_id"`
	Number        int         `json:"number"`
	Name          string      `json:"name"`
	Description   null.String `json:"description"`
	Status        Status      `json:"status"`
	ResponsibleID null.String `json:"responsible_id"`
	SupplierID    null.String `json:"supplier_id"`
	PlannedStart  null.Time   `json:"planned_start"`
	PlannedEnd    null.Time   `json:"planned_end"`
	ActualStart   null.Time   `json:"actual_start"`
	ActualEnd     null.Time   `json:"actual_end"`
}

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusApproved   Status = "approved"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusInReview, StatusApproved, StatusCompleted:
		return true
	}
	return false
}

func (*Phase) Table() string      { return Table }
func (*Phase) SchemaVersion() int { return 1 }

// NewPhase returns an empty phase for decoding.
func NewPhase() *Phase { return &Phase{} }

// Validate checks the phase before it is stored.
func (p *Phase) Validate() error {
	if p.ProjectID == "" {
		return errors.New("phase needs a project")
	}
	if p.Name == "" || p.Number < 1 {
		return errors.New("phase name and a positive number are required")
	}
	if p.Status == "" {
		p.Status = StatusNotStarted
	}
	if !p.Status.Valid() {
		return errors.Newf("unknown phase status %q", p.Status)
	}
	return nil
}

// HasSupplier reports whether a supplier is assigned.
func (p *Phase) HasSupplier() bool { return p.SupplierID.Valid && p.SupplierID.String != "" }
