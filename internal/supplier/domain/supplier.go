package domain

import (
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/versioned"
)

// Table is the collection suppliers are stored in.
const Table = "suppliers"

// Supplier is an external company working on project phases.
type Supplier struct {
	versioned.Meta
	Name          string      `json:"name"`
	KvKNumber     null.String `json:"kvk_number"`
	VATNumber     null.String `json:"vat_number"`
	Type          string      `json:"type"`
	Status        Status      `json:"status"`
	ContactPerson null.String `json:"contact_person"`
	Email         null.String `json:"email"`
	Phone         null.String `json:"phone"`
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBlocked  Status = "blocked"
)

func (*Supplier) Table() string      { return Table }
func (*Supplier) SchemaVersion() int { return 1 }

// New returns an empty supplier for decoding.
func New() *Supplier { return &Supplier{} }

// Validate checks the supplier before it is stored.
func (s *Supplier) Validate() error {
	if s.Name == "" {
		return errors.New("supplier name is required")
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	return nil
}
