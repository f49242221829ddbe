package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectValidate(t *testing.T) {
	p := &Project{Number: "P-1", Name: "School"}
	require.NoError(t, p.Validate())
	assert.Equal(t, StatusConcept, p.Status)

	tests := []struct {
		name string
		p    Project
	}{
		{"missing number", Project{Name: "School"}},
		{"missing name", Project{Number: "P-1"}},
		{"unknown status", Project{Number: "P-1", Name: "School", Status: "paused"}},
		{"negative budget", Project{Number: "P-1", Name: "School", BudgetTotal: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.p.Validate())
		})
	}
}

func TestBudgetPercentage(t *testing.T) {
	assert.Zero(t, (&Project{BudgetSpent: 10}).BudgetPercentage())
	assert.InDelta(t, 25.0, (&Project{BudgetTotal: 400, BudgetSpent: 100}).BudgetPercentage(), 1e-9)
}
