// Package handler serves PhaseService: phases, documents and comments of a
// project, filtered to what the caller may see.
package handler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"projectbeheer/backend/internal/phase/domain"
	"projectbeheer/backend/internal/phase/service"
	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/platform/rbac"
	"projectbeheer/backend/internal/server/rpc"
	userdomain "projectbeheer/backend/internal/user/domain"
	"projectbeheer/backend/internal/visibility"
)

// ServiceName is the gRPC service name of the phase API.
const ServiceName = "projectbeheer.phase.v1.PhaseService"

// ScopeRequest addresses a project, a phase or a comment.
type ScopeRequest struct {
	ProjectID string `json:"project_id,omitempty"`
	PhaseID   string `json:"phase_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}

// UpdatePhaseRequest changes a phase at ExpectedVersion. Absent fields are
// left alone; ClearSupplier unassigns the supplier.
type UpdatePhaseRequest struct {
	PhaseID         string         `json:"phase_id"`
	ExpectedVersion int64          `json:"expected_version"`
	Status          *domain.Status `json:"status,omitempty"`
	SupplierID      *string        `json:"supplier_id,omitempty"`
	ClearSupplier   bool           `json:"clear_supplier,omitempty"`
	ResponsibleID   *string        `json:"responsible_id,omitempty"`
	Name            *string        `json:"name,omitempty"`
}

func (r UpdatePhaseRequest) update() service.PhaseUpdate {
	u := service.PhaseUpdate{Status: r.Status, Name: r.Name}
	switch {
	case r.ClearSupplier:
		v := null.String{}
		u.SupplierID = &v
	case r.SupplierID != nil:
		v := null.StringFrom(*r.SupplierID)
		u.SupplierID = &v
	}
	if r.ResponsibleID != nil {
		v := null.NewString(*r.ResponsibleID, *r.ResponsibleID != "")
		u.ResponsibleID = &v
	}
	return u
}

// Server implements PhaseService.
type Server struct {
	svc   *service.Service
	users rbac.UserGetter
}

// NewServer returns a new phase server.
func NewServer(svc *service.Service, users rbac.UserGetter) *Server {
	return &Server{svc: svc, users: users}
}

// Service describes the methods for registration.
func (s *Server) Service() rpc.Service {
	return rpc.Service{
		Name: ServiceName,
		Methods: []rpc.Method{
			{Name: "ListPhases", Handler: s.ListPhases},
			{Name: "GetPhase", Handler: s.GetPhase},
			{Name: "UpdatePhase", Handler: s.UpdatePhase},
			{Name: "DeletePhase", Handler: s.DeletePhase},
			{Name: "ListDocuments", Handler: s.ListDocuments},
			{Name: "AddDocument", Handler: s.AddDocument},
			{Name: "ListComments", Handler: s.ListComments},
			{Name: "AddComment", Handler: s.AddComment},
			{Name: "PublishComment", Handler: s.PublishComment},
			{Name: "ArchiveComment", Handler: s.ArchiveComment},
		},
	}
}

// ListPhases returns the phases of project_id the caller can see, by number.
func (s *Server) ListPhases(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, p, in, err := s.scope(ctx, req)
	if err != nil {
		return nil, err
	}
	if in.ProjectID == "" {
		return nil, apperr.Invalid(errors.New("project_id is required"))
	}
	phases, err := s.svc.Phases(ctx, p, in.ProjectID)
	if err != nil {
		return nil, err
	}
	return rpc.EncodeList(phases)
}

// GetPhase returns one phase. Phases the caller cannot see are NotFound.
func (s *Server) GetPhase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, p, in, err := s.scope(ctx, req)
	if err != nil {
		return nil, err
	}
	if in.PhaseID == "" {
		return nil, apperr.Invalid(errors.New("phase_id is required"))
	}
	ph, err := s.svc.Phase(ctx, p, in.PhaseID)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(ph)
}

// UpdatePhase changes status, assignment or name of a phase. Staff only.
func (s *Server) UpdatePhase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := rbac.RequireStaff(ctx, s.users); err != nil {
		return nil, err
	}
	var in UpdatePhaseRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.PhaseID == "" || in.ExpectedVersion < 1 {
		return nil, apperr.Invalid(errors.New("phase_id and expected_version are required"))
	}
	ph, err := s.svc.UpdatePhase(ctx, visibility.Internal(), in.PhaseID, in.ExpectedVersion, in.update())
	if err != nil {
		return nil, err
	}
	return rpc.Encode(ph)
}

// DeletePhaseRequest removes a phase at ExpectedVersion.
type DeletePhaseRequest struct {
	PhaseID         string `json:"phase_id"`
	ExpectedVersion int64  `json:"expected_version"`
}

// DeletePhaseResponse reports the version the deletion was recorded as.
type DeletePhaseResponse struct {
	PhaseID string `json:"phase_id"`
	Version int64  `json:"version"`
}

// DeletePhase removes a phase with its documents and comments. Staff only.
func (s *Server) DeletePhase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := rbac.RequireStaff(ctx, s.users); err != nil {
		return nil, err
	}
	var in DeletePhaseRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.PhaseID == "" || in.ExpectedVersion < 1 {
		return nil, apperr.Invalid(errors.New("phase_id and expected_version are required"))
	}
	if err := s.svc.DeletePhase(ctx, visibility.Internal(), in.PhaseID, in.ExpectedVersion); err != nil {
		return nil, err
	}
	return rpc.Encode(DeletePhaseResponse{PhaseID: in.PhaseID, Version: in.ExpectedVersion + 1})
}

// ListDocuments returns the documents of phase_id, or of every phase of
// project_id, that the caller can see.
func (s *Server) ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, p, in, err := s.scope(ctx, req)
	if err != nil {
		return nil, err
	}
	var docs []*domain.Document
	switch {
	case in.PhaseID != "":
		docs, err = s.svc.Documents(ctx, p, in.PhaseID)
	case in.ProjectID != "":
		docs, err = s.svc.ProjectDocuments(ctx, p, in.ProjectID)
	default:
		return nil, apperr.Invalid(errors.New("phase_id or project_id is required"))
	}
	if err != nil {
		return nil, err
	}
	return rpc.EncodeList(docs)
}

// AddDocument registers a document on a phase. Staff only; the caller is the
// uploader.
func (s *Server) AddDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := rbac.RequireStaff(ctx, s.users)
	if err != nil {
		return nil, err
	}
	var d domain.Document
	if err := rpc.Decode(req, &d); err != nil {
		return nil, err
	}
	d.ID = ""
	d.UploadedBy = u.ID
	if err := s.svc.AddDocument(ctx, visibility.Internal(), &d); err != nil {
		return nil, err
	}
	return rpc.Encode(&d)
}

// ListComments returns the comments of phase_id the caller can see.
func (s *Server) ListComments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, p, in, err := s.scope(ctx, req)
	if err != nil {
		return nil, err
	}
	if in.PhaseID == "" {
		return nil, apperr.Invalid(errors.New("phase_id is required"))
	}
	comments, err := s.svc.Comments(ctx, p, in.PhaseID)
	if err != nil {
		return nil, err
	}
	return rpc.EncodeList(comments)
}

// AddComment posts a comment as the caller. Read-only users may not comment.
func (s *Server) AddComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, p, err := s.writer(ctx)
	if err != nil {
		return nil, err
	}
	var c domain.Comment
	if err := rpc.Decode(req, &c); err != nil {
		return nil, err
	}
	c.ID = ""
	c.AuthorID = u.ID
	c.PublishedAt = null.Time{}
	if err := s.svc.AddComment(ctx, p, &c); err != nil {
		return nil, err
	}
	return rpc.Encode(&c)
}

// PublishComment publishes a draft comment.
func (s *Server) PublishComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, req, s.svc.PublishComment)
}

// ArchiveComment archives a comment.
func (s *Server) ArchiveComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, req, s.svc.ArchiveComment)
}

type transitionFunc func(ctx context.Context, p visibility.Principal, userID, id string) (*domain.Comment, error)

func (s *Server) transition(ctx context.Context, req *structpb.Struct, fn transitionFunc) (*structpb.Struct, error) {
	u, p, err := s.writer(ctx)
	if err != nil {
		return nil, err
	}
	var in ScopeRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.CommentID == "" {
		return nil, apperr.Invalid(errors.New("comment_id is required"))
	}
	c, err := fn(ctx, p, u.ID, in.CommentID)
	if err != nil {
		return nil, err
	}
	return rpc.Encode(c)
}

func (s *Server) scope(ctx context.Context, req *structpb.Struct) (*userdomain.User, visibility.Principal, ScopeRequest, error) {
	var in ScopeRequest
	u, p, err := rbac.RequireUser(ctx, s.users)
	if err != nil {
		return nil, p, in, err
	}
	if err := rpc.Decode(req, &in); err != nil {
		return nil, p, in, err
	}
	return u, p, in, nil
}

func (s *Server) writer(ctx context.Context) (*userdomain.User, visibility.Principal, error) {
	u, p, err := rbac.RequireUser(ctx, s.users)
	if err != nil {
		return nil, p, err
	}
	if u.Role == userdomain.RoleReadOnly {
		return nil, p, status.Error(codes.PermissionDenied, "read-only users may not comment")
	}
	return u, p, nil
}
