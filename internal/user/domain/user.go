package domain

import (
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/versioned"
)

// Table is the collection users are stored in.
const Table = "users"

// User is a staff member or a supplier's contact person.
type User struct {
	versioned.Meta
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	// SupplierID links users with RoleSupplier to their company.
	SupplierID null.String `json:"supplier_id"`
	Active     bool        `json:"active"`
}

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProjectLead    Role = "project_lead"
	RoleController     Role = "controller"
	RoleAdministrative Role = "administrative"
	RoleSupplier       Role = "supplier"
	RoleReadOnly       Role = "read_only"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectLead, RoleController, RoleAdministrative, RoleSupplier, RoleReadOnly:
		return true
	}
	return false
}

func (*User) Table() string      { return Table }
func (*User) SchemaVersion() int { return 1 }

// New returns an empty user for decoding.
func New() *User { return &User{} }

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !u.Role.Valid() {
		return errors.Newf("unknown role %q", u.Role)
	}
	if u.Role == RoleSupplier && !u.SupplierID.Valid {
		return errors.New("supplier users need a supplier id")
	}
	return nil
}
