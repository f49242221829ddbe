package domain

import (
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/versioned"
)

// Table is the collection projects are stored in.
const Table = "projects"

// Project is a construction or renovation project.
type Project struct {
	versioned.Meta
	Number      string      `json:"number"`
	Name        string      `json:"name"`
	Description null.String `json:"description"`
	Status      Status      `json:"status"`
	BudgetTotal int64       `json:"budget_total"`
	BudgetSpent int64       `json:"budget_spent"`
	StartDate   null.Time   `json:"start_date"`
	EndDate     null.Time   `json:"end_date"`
	LeadID      null.String `json:"lead_id"`
	Notes       null.String `json:"notes"`
}

type Status string

const (
	StatusConcept                Status = "concept"
	StatusPlanning               Status = "in_planning"
	StatusTendering              Status = "tendering"
	StatusInProgress             Status = "in_progress"
	StatusQualityCheck           Status = "quality_check"
	StatusProvisionallyDelivered Status = "provisionally_delivered"
	StatusCompleted              Status = "completed"
)

func (*Project) Table() string      { return Table }
func (*Project) SchemaVersion() int { return 1 }

// New returns an empty project for decoding.
func New() *Project { return &Project{} }

// Validate checks the project before it is stored.
func (p *Project) Validate() error {
	if p.Number == "" || p.Name == "" {
		return errors.New("project number and name are required")
	}
	if p.Status == "" {
		p.Status = StatusConcept
	}
	switch p.Status {
	case StatusConcept, StatusPlanning, StatusTendering, StatusInProgress,
		StatusQualityCheck, StatusProvisionallyDelivered, StatusCompleted:
	default:
		return errors.Newf("unknown project status %q", p.Status)
	}
	if p.BudgetTotal < 0 || p.BudgetSpent < 0 {
		return errors.New("budget cannot be negative")
	}
	return nil
}

// BudgetPercentage is the spent share of the total budget, 0 without a budget.
func (p *Project) BudgetPercentage() float64 {
	if p.BudgetTotal == 0 {
		return 0
	}
	return float64(p.BudgetSpent) / float64(p.BudgetTotal) * 100
}
