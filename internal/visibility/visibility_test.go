package visibility

import (
	"testing"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"

	phasedomain "projectbeheer/backend/internal/phase/domain"
	"projectbeheer/backend/internal/user/domain"
	"projectbeheer/backend/internal/versioned"
)

func phase(id string, supplier null.String) *phasedomain.Phase {
	return &phasedomain.Phase{Meta: versioned.Meta{ID: id, Version: 1}, ProjectID: "p1", SupplierID: supplier}
}

var (
	phaseA = phase("A", null.StringFrom("S1"))
	phaseB = phase("B", null.String{})
	phaseC = phase("C", null.StringFrom("S2"))
	phases = []*phasedomain.Phase{phaseA, phaseB, phaseC}
)

func TestFilterPhases(t *testing.T) {
	assert.Equal(t, []*phasedomain.Phase{phaseA}, FilterPhases(phases, Supplier("S1")))
	assert.Equal(t, []*phasedomain.Phase{phaseC}, FilterPhases(phases, Supplier("S2")))
	assert.Equal(t, phases, FilterPhases(phases, Internal()))
	assert.Empty(t, FilterPhases(phases, Supplier("S3")))
}

func TestFilterPhases_UnassignedNeverVisibleToSuppliers(t *testing.T) {
	assert.False(t, CanSeePhase(Supplier("S1"), phaseB))
	assert.False(t, CanSeePhase(Supplier("S1"), phase("D", null.StringFrom(""))))
	assert.True(t, CanSeePhase(Internal(), phaseB))
	assert.False(t, CanSeePhase(Internal(), nil))
}

func TestFilterDocuments(t *testing.T) {
	d1 := &phasedomain.Document{ID: "D1", PhaseID: "A", SupplierVisible: true}
	d2 := &phasedomain.Document{ID: "D2", PhaseID: "A", SupplierVisible: false}
	d3 := &phasedomain.Document{ID: "D3", PhaseID: "C", SupplierVisible: true}
	docs := []*phasedomain.Document{d1, d2, d3}

	assert.Equal(t, []*phasedomain.Document{d1}, FilterDocuments([]*phasedomain.Document{d1, d2}, phases, Supplier("S1")))
	assert.Equal(t, []*phasedomain.Document{d1}, FilterDocuments(docs, phases, Supplier("S1")))
	assert.Equal(t, []*phasedomain.Document{d3}, FilterDocuments(docs, phases, Supplier("S2")))
	assert.Equal(t, docs, FilterDocuments(docs, phases, Internal()))
}

func TestFilterDocuments_UnknownPhaseHidden(t *testing.T) {
	orphan := &phasedomain.Document{ID: "D9", PhaseID: "Z", SupplierVisible: true}
	assert.Empty(t, FilterDocuments([]*phasedomain.Document{orphan}, phases, Supplier("S1")))
}

func TestFilterComments(t *testing.T) {
	c1 := &phasedomain.Comment{ID: "C1", PhaseID: "A", Type: phasedomain.CommentSupplierFacing, State: phasedomain.CommentPublished}
	c2 := &phasedomain.Comment{ID: "C2", PhaseID: "A", Type: phasedomain.CommentSupplierFacing, State: phasedomain.CommentDraft}
	c3 := &phasedomain.Comment{ID: "C3", PhaseID: "A", Type: phasedomain.CommentInternal, State: phasedomain.CommentPublished}
	c4 := &phasedomain.Comment{ID: "C4", PhaseID: "A", Type: phasedomain.CommentSupplierFacing, State: phasedomain.CommentArchived}
	c5 := &phasedomain.Comment{ID: "C5", PhaseID: "C", Type: phasedomain.CommentSupplierFacing, State: phasedomain.CommentPublished}
	all := []*phasedomain.Comment{c1, c2, c3, c4, c5}

	assert.Equal(t, []*phasedomain.Comment{c1}, FilterComments([]*phasedomain.Comment{c1, c2}, phases, Supplier("S1")))
	assert.Equal(t, []*phasedomain.Comment{c1}, FilterComments(all, phases, Supplier("S1")))
	assert.Equal(t, all, FilterComments(all, phases, Internal()))
}

func TestInvalidPrincipalSeesNothing(t *testing.T) {
	docs := []*phasedomain.Document{{ID: "D1", PhaseID: "A", SupplierVisible: true}}
	comments := []*phasedomain.Comment{{ID: "C1", PhaseID: "A", Type: phasedomain.CommentSupplierFacing, State: phasedomain.CommentPublished}}

	for _, p := range []Principal{Supplier(""), {Kind: "partner"}, {}} {
		assert.ErrorIs(t, p.Validate(), ErrInvalidPrincipal)
		assert.NotNil(t, FilterPhases(phases, p))
		assert.Empty(t, FilterPhases(phases, p))
		assert.Empty(t, FilterDocuments(docs, phases, p))
		assert.Empty(t, FilterComments(comments, phases, p))
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, Supplier("S1"), Resolve(domain.RoleSupplier, "S1"))
	assert.Equal(t, Supplier(""), Resolve(domain.RoleSupplier, ""))
	for _, r := range []domain.Role{domain.RoleAdmin, domain.RoleProjectLead, domain.RoleController, domain.RoleAdministrative, domain.RoleReadOnly} {
		assert.Equal(t, Internal(), Resolve(r, "S1"))
	}
}

func TestFiltersDoNotAliasInput(t *testing.T) {
	docs := []*phasedomain.Document{{ID: "D1", PhaseID: "A"}}
	out := FilterDocuments(docs, phases, Internal())
	out[0] = nil
	assert.NotNil(t, docs[0])
}
