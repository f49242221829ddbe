package domain

import (
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/versioned"
)

// Table is the collection contracts are stored in.
const Table = "contracts"

// Contract is an agreement with a supplier, optionally tied to a project.
type Contract struct {
	versioned.Meta
	Number      string      `json:"number"`
	Name        string      `json:"name"`
	Description null.String `json:"description"`
	Type        Type        `json:"type"`
	Status      Status      `json:"status"`
	SupplierID  null.String `json:"supplier_id"`
	ProjectID   null.String `json:"project_id"`
	Value       int64       `json:"value"`
	StartDate   null.Time   `json:"start_date"`
	EndDate     null.Time   `json:"end_date"`
}

type Type string

const (
	TypeMaintenance Type = "maintenance"
	TypeService     Type = "service"
	TypeDelivery    Type = "delivery"
	TypeConstruct   Type = "construction"
	TypeFramework   Type = "framework"
	TypeLease       Type = "lease"
	TypeOther       Type = "other"
)

type Status string

const (
	StatusConcept         Status = "concept"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusSigned          Status = "signed"
	StatusActive          Status = "active"
	StatusExpired         Status = "expired"
	StatusTerminated      Status = "terminated"
)

func (*Contract) Table() string      { return Table }
func (*Contract) SchemaVersion() int { return 1 }

// New returns an empty contract for decoding.
func New() *Contract { return &Contract{} }

// Validate checks the contract before it is stored.
func (c *Contract) Validate() error {
	if c.Number == "" || c.Name == "" {
		return errors.New("contract number and name are required")
	}
	if c.Type == "" {
		return errors.New("contract type is required")
	}
	if c.Status == "" {
		c.Status = StatusConcept
	}
	if c.StartDate.Valid && c.EndDate.Valid && c.EndDate.Time.Before(c.StartDate.Time) {
		return errors.New("contract ends before it starts")
	}
	return nil
}
