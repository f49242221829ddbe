// Package records serves the generic versioned record APIs for projects,
// contracts, suppliers and users: get, list, create, update by JSON merge
// patch and delete, each guarded by an expected version.
package records

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/platform/rbac"
	"projectbeheer/backend/internal/server/rpc"
	userdomain "projectbeheer/backend/internal/user/domain"
	"projectbeheer/backend/internal/versioned"
	"projectbeheer/backend/internal/versioning"
)

// Entity is a versioned record that can check itself before it is stored.
type Entity interface {
	versioned.Entity
	Validate() error
}

// IDRequest addresses one record at an expected version.
type IDRequest struct {
	ID              string `json:"id"`
	ExpectedVersion int64  `json:"expected_version,omitempty"`
}

// ListRequest filters records on one top-level field. An empty field lists
// everything.
type ListRequest struct {
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// UpdateRequest merges Patch onto the record at ExpectedVersion.
type UpdateRequest struct {
	ID              string          `json:"id"`
	ExpectedVersion int64           `json:"expected_version"`
	Patch           json.RawMessage `json:"patch"`
}

// DeleteResponse reports the version the deletion was recorded as.
type DeleteResponse struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

// Option configures a Resource.
type Option func(*options)

type options struct {
	adminWrites bool
	listFields  *set.Set[string]
}

// AdminWrites restricts create, update and delete to admins.
func AdminWrites() Option {
	return func(o *options) { o.adminWrites = true }
}

// ListFields sets the fields List may filter on.
func ListFields(fields ...string) Option {
	return func(o *options) { o.listFields = set.From(fields) }
}

// Resource exposes one record type as a gRPC service. Reads require an
// internal user; writes require staff.
type Resource[T Entity] struct {
	name    string
	tracker *versioning.Tracker[T]
	newFn   func() T
	users   rbac.UserGetter
	opts    options
}

// NewResource serves the records of tracker as gRPC service name.
func NewResource[T Entity](name string, tracker *versioning.Tracker[T], newFn func() T, users rbac.UserGetter, opts ...Option) *Resource[T] {
	o := options{listFields: set.New[string](0)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resource[T]{name: name, tracker: tracker, newFn: newFn, users: users, opts: o}
}

// Service describes the methods for registration.
func (r *Resource[T]) Service() rpc.Service {
	return rpc.Service{
		Name: r.name,
		Methods: []rpc.Method{
			{Name: "Get", Handler: r.Get},
			{Name: "List", Handler: r.List},
			{Name: "Create", Handler: r.Create},
			{Name: "Update", Handler: r.Update},
			{Name: "Delete", Handler: r.Delete},
		},
	}
}

// Get returns one record.
func (r *Resource[T]) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := rbac.RequireInternal(ctx, r.users); err != nil {
		return nil, err
	}
	var in IDRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, apperr.Invalid(errors.New("id is required"))
	}
	e, err := r.tracker.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(e)
}

// List returns records, oldest first.
func (r *Resource[T]) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := rbac.RequireInternal(ctx, r.users); err != nil {
		return nil, err
	}
	var in ListRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.Field != "" && !r.opts.listFields.Contains(in.Field) {
		return nil, apperr.Invalid(errors.Newf("cannot filter on %q", in.Field))
	}
	items, err := r.tracker.List(ctx, in.Field, in.Value)
	if err != nil {
		return nil, err
	}
	return rpc.EncodeList(items)
}

// Create stores a new record as version 1.
func (r *Resource[T]) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := r.requireWriter(ctx); err != nil {
		return nil, err
	}
	e := r.newFn()
	if err := rpc.Decode(req, e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, apperr.Invalid(err)
	}
	created, err := r.tracker.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(created)
}

// Update applies a JSON merge patch if the record is still at the expected
// version.
func (r *Resource[T]) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := r.requireWriter(ctx); err != nil {
		return nil, err
	}
	var in UpdateRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.ID == "" || in.ExpectedVersion < 1 || len(in.Patch) == 0 {
		return nil, apperr.Invalid(errors.New("id, expected_version and patch are required"))
	}
	updated, err := r.tracker.Update(ctx, in.ID, in.ExpectedVersion, func(e T) error {
		if err := json.Unmarshal(in.Patch, e); err != nil {
			return apperr.Invalid(errors.Wrap(err, "apply patch"))
		}
		return apperr.Invalid(e.Validate())
	})
	if err != nil {
		return nil, err
	}
	return rpc.Encode(updated)
}

// Delete removes the record if it is still at the expected version.
func (r *Resource[T]) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := r.requireWriter(ctx); err != nil {
		return nil, err
	}
	var in IDRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.ID == "" || in.ExpectedVersion < 1 {
		return nil, apperr.Invalid(errors.New("id and expected_version are required"))
	}
	if err := r.tracker.Delete(ctx, in.ID, in.ExpectedVersion); err != nil {
		return nil, err
	}
	return rpc.Encode(DeleteResponse{ID: in.ID, Version: in.ExpectedVersion + 1})
}

func (r *Resource[T]) requireWriter(ctx context.Context) error {
	u, err := rbac.RequireStaff(ctx, r.users)
	if err != nil {
		return err
	}
	if r.opts.adminWrites && u.Role != userdomain.RoleAdmin {
		return status.Error(codes.PermissionDenied, "admin role required")
	}
	return nil
}
