// Package app assembles the storage backend, versioned trackers, audit trail
// and gRPC handlers from configuration. cmd/server, cmd/seed and
// cmd/historyctl share it so they all see the same tables.
package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"projectbeheer/backend/internal/audit"
	audithandler "projectbeheer/backend/internal/audit/handler"
	auditrepo "projectbeheer/backend/internal/audit/repository"
	"projectbeheer/backend/internal/config"
	contractdomain "projectbeheer/backend/internal/contract/domain"
	"projectbeheer/backend/internal/db"
	healthhandler "projectbeheer/backend/internal/health/handler"
	phasedomain "projectbeheer/backend/internal/phase/domain"
	phasehandler "projectbeheer/backend/internal/phase/handler"
	phaserepo "projectbeheer/backend/internal/phase/repository"
	phaseservice "projectbeheer/backend/internal/phase/service"
	projectdomain "projectbeheer/backend/internal/project/domain"
	"projectbeheer/backend/internal/records"
	"projectbeheer/backend/internal/seed"
	"projectbeheer/backend/internal/server"
	"projectbeheer/backend/internal/server/rpc"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/storage/memory"
	"projectbeheer/backend/internal/storage/postgres"
	supplierdomain "projectbeheer/backend/internal/supplier/domain"
	"projectbeheer/backend/internal/telemetry"
	userdomain "projectbeheer/backend/internal/user/domain"
	"projectbeheer/backend/internal/versioned"
	"projectbeheer/backend/internal/versioning"
)

// Names of the generic record services.
const (
	ProjectService  = "projectbeheer.records.v1.ProjectService"
	ContractService = "projectbeheer.records.v1.ContractService"
	SupplierService = "projectbeheer.records.v1.SupplierService"
	UserService     = "projectbeheer.records.v1.UserService"
)

// App holds the wired components. Pool is nil on the in-memory backend.
type App struct {
	Tx       storage.Transactor
	Pool     *pgxpool.Pool
	Recorder *audit.Recorder
	History  *audit.History

	Projects  *versioning.Tracker[*projectdomain.Project]
	Contracts *versioning.Tracker[*contractdomain.Contract]
	Suppliers *versioning.Tracker[*supplierdomain.Supplier]
	Users     *versioning.Tracker[*userdomain.User]
	Phases    *versioning.Tracker[*phasedomain.Phase]

	PhaseService *phaseservice.Service
}

// backend builds tables and repositories on either Postgres or memory.
type backend struct {
	pool *pgxpool.Pool
	mem  *memory.DB
}

func table[T versioned.Entity](b backend, newFn func() T) storage.Table[T] {
	if b.pool != nil {
		return postgres.NewTable(b.pool, newFn)
	}
	return memory.NewTable(b.mem, newFn)
}

// New connects to cfg.DatabaseURL, or uses the in-memory store when it is
// empty. Committed audit entries are also handed to emitters.
func New(ctx context.Context, cfg *config.Config, emitters ...telemetry.EventEmitter) (*App, error) {
	if cfg.DatabaseURL == "" {
		slog.WarnContext(ctx, "DATABASE_URL not set, using the in-memory store")
		return NewMemory(cfg.HistoryMaxLimit, emitters...), nil
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBConnectAttempts)
	if err != nil {
		return nil, err
	}
	b := backend{pool: pool}
	return build(b,
		postgres.NewTransactor(pool, postgres.ParseIsolation(cfg.DBIsolation)),
		auditrepo.NewPostgresRepository(pool),
		phaserepo.NewPostgresRepository(pool),
		cfg.HistoryMaxLimit, emitters), nil
}

// NewMemory returns an App on a fresh in-memory store.
func NewMemory(historyMaxLimit int, emitters ...telemetry.EventEmitter) *App {
	mem := memory.New()
	return build(backend{mem: mem}, mem,
		auditrepo.NewMemoryRepository(mem),
		phaserepo.NewMemoryRepository(mem),
		historyMaxLimit, emitters)
}

func build(b backend, tx storage.Transactor, audits auditrepo.Repository, phases phaserepo.Repository, historyMaxLimit int, emitters []telemetry.EventEmitter) *App {
	rec := audit.NewRecorder(audits, emitters...)
	a := &App{
		Tx:        tx,
		Pool:      b.pool,
		Recorder:  rec,
		History:   audit.NewHistory(audits, historyMaxLimit),
		Projects:  versioning.New(tx, table(b, projectdomain.New), rec),
		Contracts: versioning.New(tx, table(b, contractdomain.New), rec),
		Suppliers: versioning.New(tx, table(b, supplierdomain.New), rec),
		Users:     versioning.New(tx, table(b, userdomain.New), rec),
		Phases:    versioning.New(tx, table(b, phasedomain.NewPhase), rec),
	}
	a.PhaseService = phaseservice.New(tx, a.Phases, phases)
	return a
}

// Records returns the generic record services. User writes are admin-only.
func (a *App) Records() []rpc.Service {
	return []rpc.Service{
		records.NewResource(ProjectService, a.Projects, projectdomain.New, a.Users,
			records.ListFields("status", "lead_id", "number")).Service(),
		records.NewResource(ContractService, a.Contracts, contractdomain.New, a.Users,
			records.ListFields("status", "type", "supplier_id", "project_id")).Service(),
		records.NewResource(SupplierService, a.Suppliers, supplierdomain.New, a.Users,
			records.ListFields("status", "type")).Service(),
		records.NewResource(UserService, a.Users, userdomain.New, a.Users,
			records.AdminWrites(), records.ListFields("role", "supplier_id", "email")).Service(),
	}
}

// Deps returns every gRPC handler. Health covers the overall status and each
// registered service.
func (a *App) Deps() server.Deps {
	deps := server.Deps{
		History: audithandler.NewServer(a.History, a.Users),
		Phases:  phasehandler.NewServer(a.PhaseService, a.Users),
		Records: a.Records(),
	}
	var names []string
	for _, svc := range deps.Services() {
		names = append(names, svc.Name)
	}
	var pinger healthhandler.Pinger
	if a.Pool != nil {
		pinger = a.Pool
	}
	deps.Health = healthhandler.NewServer(pinger, names...)
	return deps
}

// Seeder returns a seeder writing through the app's trackers.
func (a *App) Seeder() *seed.Seeder {
	return seed.NewSeeder(a.Tx, seed.Stores{
		Suppliers: a.Suppliers,
		Users:     a.Users,
		Projects:  a.Projects,
		Contracts: a.Contracts,
		Phases:    a.Phases,
	})
}

// Close releases the database pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
