// Package handler serves HistoryService: read access to the audit trail for
// internal users.
package handler

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"projectbeheer/backend/internal/audit"
	"projectbeheer/backend/internal/audit/domain"
	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/platform/rbac"
	"projectbeheer/backend/internal/server/rpc"
	"projectbeheer/backend/internal/versioned"
)

// ServiceName is the gRPC service name of the history API.
const ServiceName = "projectbeheer.audit.v1.HistoryService"

// EntityRequest addresses one entity, and optionally versions of it.
type EntityRequest struct {
	EntityTable string `json:"entity_table"`
	EntityID    string `json:"entity_id"`
	Version     int64  `json:"version,omitempty"`
	V1          int64  `json:"v1,omitempty"`
	V2          int64  `json:"v2,omitempty"`
}

func (r EntityRequest) validate() error {
	if r.EntityTable == "" || r.EntityID == "" {
		return apperr.Invalid(errors.New("entity_table and entity_id are required"))
	}
	return nil
}

// ActivityRequest selects recent changes by actor, table or time.
type ActivityRequest struct {
	ActorID     string    `json:"actor_id,omitempty"`
	EntityTable string    `json:"entity_table,omitempty"`
	Since       time.Time `json:"since,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}

// VersionResponse is the state right after Version was committed.
type VersionResponse struct {
	Version  int64               `json:"version"`
	Snapshot *versioned.Snapshot `json:"snapshot"`
}

// CompareResponse lists the fields that differ between V1 and V2.
type CompareResponse struct {
	V1      int64                         `json:"v1"`
	V2      int64                         `json:"v2"`
	Changes map[string]domain.FieldChange `json:"changes"`
}

// Server implements HistoryService. Every method requires an internal user;
// suppliers are denied.
type Server struct {
	history *audit.History
	users   rbac.UserGetter
}

// NewServer returns a new history server.
func NewServer(history *audit.History, users rbac.UserGetter) *Server {
	return &Server{history: history, users: users}
}

// Service describes the methods for registration.
func (s *Server) Service() rpc.Service {
	return rpc.Service{
		Name: ServiceName,
		Methods: []rpc.Method{
			{Name: "History", Handler: s.History},
			{Name: "Version", Handler: s.Version},
			{Name: "Compare", Handler: s.Compare},
			{Name: "Activity", Handler: s.Activity},
		},
	}
}

// History returns all entries of one entity, newest first.
func (s *Server) History(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := s.entity(ctx, req)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.History(ctx, in.EntityTable, in.EntityID)
	if err != nil {
		return nil, err
	}
	return rpc.EncodeList(entries)
}

// Version returns the snapshot after a given version.
func (s *Server) Version(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := s.entity(ctx, req)
	if err != nil {
		return nil, err
	}
	if in.Version < 1 {
		return nil, apperr.Invalid(errors.New("version must be at least 1"))
	}
	snap, err := s.history.Version(ctx, in.EntityTable, in.EntityID, in.Version)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(VersionResponse{Version: in.Version, Snapshot: snap})
}

// Compare returns per-field differences between two versions.
func (s *Server) Compare(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := s.entity(ctx, req)
	if err != nil {
		return nil, err
	}
	if in.V1 < 1 || in.V2 < 1 {
		return nil, apperr.Invalid(errors.New("v1 and v2 must be at least 1"))
	}
	changes, err := s.history.Compare(ctx, in.EntityTable, in.EntityID, in.V1, in.V2)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(CompareResponse{V1: in.V1, V2: in.V2, Changes: changes})
}

// Activity returns recent changes. actor_id takes precedence over
// entity_table; with neither, changes since the given time are returned.
func (s *Server) Activity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := rbac.RequireInternal(ctx, s.users); err != nil {
		return nil, err
	}
	var in ActivityRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	var (
		entries []*domain.Entry
		err     error
	)
	switch {
	case in.ActorID != "":
		entries, err = s.history.ActorActivity(ctx, in.ActorID, in.Limit)
	case in.EntityTable != "":
		entries, err = s.history.TableActivity(ctx, in.EntityTable, in.Limit)
	default:
		entries, err = s.history.Recent(ctx, in.Since, in.Limit)
	}
	if err != nil {
		return nil, err
	}
	return rpc.EncodeList(entries)
}

func (s *Server) entity(ctx context.Context, req *structpb.Struct) (EntityRequest, error) {
	var in EntityRequest
	if _, err := rbac.RequireInternal(ctx, s.users); err != nil {
		return in, err
	}
	if err := rpc.Decode(req, &in); err != nil {
		return in, err
	}
	return in, in.validate()
}
