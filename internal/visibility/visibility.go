// Package visibility decides which phases, documents and comments a
// principal may read. The rule is derived from phase assignment, document
// sharing flags and comment type/state; nothing is stored per user.
package visibility

import (
	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"

	phasedomain "projectbeheer/backend/internal/phase/domain"
	userdomain "projectbeheer/backend/internal/user/domain"
)

// ErrInvalidPrincipal is returned by Validate for malformed principals.
// Filters never return it; they treat such principals as seeing nothing.
var ErrInvalidPrincipal = errors.New("invalid principal")

// Kind separates internal staff from external suppliers.
type Kind string

const (
	KindInternal Kind = "internal"
	KindSupplier Kind = "supplier"
)

// Principal is the authenticated reader.
type Principal struct {
	Kind       Kind
	SupplierID string
}

// Internal returns a staff principal.
func Internal() Principal { return Principal{Kind: KindInternal} }

// Supplier returns a principal acting for supplier id.
func Supplier(id string) Principal { return Principal{Kind: KindSupplier, SupplierID: id} }

// Validate reports whether p is well formed.
func (p Principal) Validate() error {
	switch p.Kind {
	case KindInternal:
		return nil
	case KindSupplier:
		if p.SupplierID == "" {
			return errors.Wrap(ErrInvalidPrincipal, "supplier principal without supplier id")
		}
		return nil
	}
	return errors.Wrapf(ErrInvalidPrincipal, "unknown principal kind %q", p.Kind)
}

// IsInternal reports whether p is a valid internal principal.
func (p Principal) IsInternal() bool { return p.Kind == KindInternal }

// Resolve maps a user's role and supplier link to a principal. Every role
// except supplier is internal.
func Resolve(role userdomain.Role, supplierID string) Principal {
	if role == userdomain.RoleSupplier {
		return Supplier(supplierID)
	}
	return Internal()
}

// CanSeePhase is the single rule all filters build on.
func CanSeePhase(p Principal, phase *phasedomain.Phase) bool {
	if phase == nil || p.Validate() != nil {
		return false
	}
	if p.IsInternal() {
		return true
	}
	return phase.HasSupplier() && phase.SupplierID.String == p.SupplierID
}

// FilterPhases returns the phases p may see, in input order.
func FilterPhases(phases []*phasedomain.Phase, p Principal) []*phasedomain.Phase {
	out := make([]*phasedomain.Phase, 0, len(phases))
	for _, ph := range phases {
		if CanSeePhase(p, ph) {
			out = append(out, ph)
		}
	}
	return out
}

// VisiblePhaseIDs returns the ids of the phases p may see.
func VisiblePhaseIDs(phases []*phasedomain.Phase, p Principal) *set.Set[string] {
	ids := set.New[string](len(phases))
	for _, ph := range FilterPhases(phases, p) {
		ids.Insert(ph.ID)
	}
	return ids
}

// FilterDocuments returns the documents p may see. phases are the candidate
// parents; a document whose phase is not among the visible ones is hidden
// from suppliers.
func FilterDocuments(docs []*phasedomain.Document, phases []*phasedomain.Phase, p Principal) []*phasedomain.Document {
	if p.Validate() != nil {
		return []*phasedomain.Document{}
	}
	if p.IsInternal() {
		return append([]*phasedomain.Document{}, docs...)
	}
	visible := VisiblePhaseIDs(phases, p)
	out := make([]*phasedomain.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil && d.SupplierVisible && visible.Contains(d.PhaseID) {
			out = append(out, d)
		}
	}
	return out
}

// FilterComments returns the comments p may see. Suppliers only see
// published supplier-facing comments on visible phases.
func FilterComments(comments []*phasedomain.Comment, phases []*phasedomain.Phase, p Principal) []*phasedomain.Comment {
	if p.Validate() != nil {
		return []*phasedomain.Comment{}
	}
	if p.IsInternal() {
		return append([]*phasedomain.Comment{}, comments...)
	}
	visible := VisiblePhaseIDs(phases, p)
	out := make([]*phasedomain.Comment, 0, len(comments))
	for _, c := range comments {
		if c != nil &&
			c.Type == phasedomain.CommentSupplierFacing &&
			c.State == phasedomain.CommentPublished &&
			visible.Contains(c.PhaseID) {
			out = append(out, c)
		}
	}
	return out
}
