package records

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"projectbeheer/backend/internal/actor"
	"projectbeheer/backend/internal/audit"
	"projectbeheer/backend/internal/audit/domain"
	auditrepo "projectbeheer/backend/internal/audit/repository"
	"projectbeheer/backend/internal/platform/apperr"
	projectdomain "projectbeheer/backend/internal/project/domain"
	"projectbeheer/backend/internal/server/interceptors"
	"projectbeheer/backend/internal/server/rpc"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/storage/memory"
	userdomain "projectbeheer/backend/internal/user/domain"
	"projectbeheer/backend/internal/versioned"
	"projectbeheer/backend/internal/versioning"
)

type fixture struct {
	projects *Resource[*projectdomain.Project]
	users    *Resource[*userdomain.User]
	history  *audit.History
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	repo := auditrepo.NewMemoryRepository(db)
	rec := audit.NewRecorder(repo)

	users := versioning.New(db, memory.NewTable(db, userdomain.New), rec)
	err := storage.Untracked(context.Background(), db, func(ctx context.Context) error {
		for _, u := range []*userdomain.User{
			{Meta: versioned.Meta{ID: "admin"}, Role: userdomain.RoleAdmin, Active: true},
			{Meta: versioned.Meta{ID: "lead"}, Role: userdomain.RoleProjectLead, Active: true},
			{Meta: versioned.Meta{ID: "viewer"}, Role: userdomain.RoleReadOnly, Active: true},
			{Meta: versioned.Meta{ID: "sup"}, Role: userdomain.RoleSupplier, SupplierID: null.StringFrom("S1"), Active: true},
		} {
			if _, err := users.Create(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	projects := versioning.New(db, memory.NewTable(db, projectdomain.New), rec)
	return &fixture{
		projects: NewResource("test.ProjectService", projects, projectdomain.New, users, ListFields("status")),
		users:    NewResource("test.UserService", users, userdomain.New, users, AdminWrites()),
		history:  audit.NewHistory(repo, 0),
	}
}

func asUser(t *testing.T, id string) context.Context {
	t.Helper()
	ctx := interceptors.WithIdentity(context.Background(), interceptors.Identity{UserID: id})
	ctx, err := actor.With(ctx, id, "")
	require.NoError(t, err)
	return ctx
}

func request(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	s, err := rpc.Encode(v)
	require.NoError(t, err)
	return s
}

func createProject(t *testing.T, f *fixture, number string) *projectdomain.Project {
	t.Helper()
	resp, err := f.projects.Create(asUser(t, "lead"), request(t, projectdomain.Project{Number: number, Name: "Renovatie " + number, BudgetTotal: 1000}))
	require.NoError(t, err)
	var p projectdomain.Project
	require.NoError(t, rpc.Decode(resp, &p))
	return &p
}

func TestCreate_Version1(t *testing.T) {
	f := newFixture(t)
	p := createProject(t, f, "P-001")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, int64(1), p.Version)
	assert.Equal(t, projectdomain.StatusConcept, p.Status)

	entries, err := f.history.History(context.Background(), projectdomain.Table, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreate, entries[0].Action)
}

func TestCreate_Invalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.projects.Create(asUser(t, "lead"), request(t, projectdomain.Project{Name: "no number"}))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestUpdate_PatchAndConflict(t *testing.T) {
	f := newFixture(t)
	p := createProject(t, f, "P-002")

	resp, err := f.projects.Update(asUser(t, "lead"), request(t, UpdateRequest{
		ID: p.ID, ExpectedVersion: 1, Patch: json.RawMessage(`{"budget_spent": 250, "version": 99}`),
	}))
	require.NoError(t, err)
	var updated projectdomain.Project
	require.NoError(t, rpc.Decode(resp, &updated))
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, int64(250), updated.BudgetSpent)
	assert.Equal(t, "Renovatie P-002", updated.Name)

	_, err = f.projects.Update(asUser(t, "lead"), request(t, UpdateRequest{
		ID: p.ID, ExpectedVersion: 1, Patch: json.RawMessage(`{"budget_spent": 300}`),
	}))
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	_, err = f.projects.Update(asUser(t, "lead"), request(t, UpdateRequest{
		ID: p.ID, ExpectedVersion: 2, Patch: json.RawMessage(`{"status": "demolished"}`),
	}))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	entries, err := f.history.History(context.Background(), projectdomain.Table, p.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	p := createProject(t, f, "P-003")

	resp, err := f.projects.Delete(asUser(t, "lead"), request(t, IDRequest{ID: p.ID, ExpectedVersion: 1}))
	require.NoError(t, err)
	var out DeleteResponse
	require.NoError(t, rpc.Decode(resp, &out))
	assert.Equal(t, int64(2), out.Version)

	_, err = f.projects.Get(asUser(t, "lead"), request(t, IDRequest{ID: p.ID}))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestList_Filter(t *testing.T) {
	f := newFixture(t)
	createProject(t, f, "P-004")
	createProject(t, f, "P-005")

	resp, err := f.projects.List(asUser(t, "viewer"), request(t, ListRequest{Field: "status", Value: "concept"}))
	require.NoError(t, err)
	var out rpc.List[projectdomain.Project]
	require.NoError(t, rpc.Decode(resp, &out))
	assert.Len(t, out.Items, 2)

	_, err = f.projects.List(asUser(t, "viewer"), request(t, ListRequest{Field: "lead_id", Value: "x"}))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestAccess(t *testing.T) {
	f := newFixture(t)
	p := createProject(t, f, "P-006")

	_, err := f.projects.Get(asUser(t, "sup"), request(t, IDRequest{ID: p.ID}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.projects.Create(asUser(t, "viewer"), request(t, projectdomain.Project{Number: "P-007", Name: "x"}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.users.Create(asUser(t, "lead"), request(t, userdomain.User{Email: "a@b.nl", Name: "A", Role: userdomain.RoleAdministrative}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.users.Create(asUser(t, "admin"), request(t, userdomain.User{Email: "a@b.nl", Name: "A", Role: userdomain.RoleAdministrative, Active: true}))
	assert.NoError(t, err)
}

func TestService_Methods(t *testing.T) {
	svc := newFixture(t).projects.Service()
	assert.Equal(t, "test.ProjectService", svc.Name)
	assert.Len(t, svc.Methods, 5)
}
