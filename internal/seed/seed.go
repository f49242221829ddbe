// Package seed bulk-loads YAML fixtures for local development. Rows are
// written without audit entries and existing ids are skipped, so a seed can
// be re-run against a populated database.
package seed

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	contractdomain "projectbeheer/backend/internal/contract/domain"
	"projectbeheer/backend/internal/logging"
	phasedomain "projectbeheer/backend/internal/phase/domain"
	projectdomain "projectbeheer/backend/internal/project/domain"
	"projectbeheer/backend/internal/storage"
	supplierdomain "projectbeheer/backend/internal/supplier/domain"
	userdomain "projectbeheer/backend/internal/user/domain"
	"projectbeheer/backend/internal/versioned"
)

// Fixtures is the decoded seed file. Rows use the same field names as the
// stored JSON bodies.
type Fixtures struct {
	Suppliers []map[string]any `yaml:"suppliers"`
	Users     []map[string]any `yaml:"users"`
	Projects  []map[string]any `yaml:"projects"`
	Contracts []map[string]any `yaml:"contracts"`
	Phases    []map[string]any `yaml:"phases"`
}

// Load reads and parses the fixture file at path.
func Load(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read seed file %s", path)
	}
	return Parse(raw)
}

// Parse decodes fixtures from YAML.
func Parse(raw []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "parse seed file")
	}
	return &f, nil
}

// Store is the part of a versioning.Tracker the seeder writes through.
type Store[T versioned.Entity] interface {
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, e T) (T, error)
}

// Stores bundles the trackers of every seeded entity type.
type Stores struct {
	Suppliers Store[*supplierdomain.Supplier]
	Users     Store[*userdomain.User]
	Projects  Store[*projectdomain.Project]
	Contracts Store[*contractdomain.Contract]
	Phases    Store[*phasedomain.Phase]
}

// Report counts what a run did per table.
type Report struct {
	Created map[string]int
	Skipped map[string]int
}

// Seeder writes fixtures through the trackers.
type Seeder struct {
	tx     storage.Transactor
	stores Stores
}

// NewSeeder returns a Seeder writing through stores in transactions of tx.
func NewSeeder(tx storage.Transactor, stores Stores) *Seeder {
	return &Seeder{tx: tx, stores: stores}
}

// Run loads f in a single untracked transaction. Referenced rows come first:
// suppliers, users, projects, contracts, then phases.
func (s *Seeder) Run(ctx context.Context, f *Fixtures) (*Report, error) {
	report := &Report{Created: map[string]int{}, Skipped: map[string]int{}}
	err := storage.Untracked(ctx, s.tx, func(ctx context.Context) error {
		if err := seedRows(ctx, report, s.stores.Suppliers, supplierdomain.New, f.Suppliers); err != nil {
			return err
		}
		if err := seedRows(ctx, report, s.stores.Users, userdomain.New, f.Users); err != nil {
			return err
		}
		if err := seedRows(ctx, report, s.stores.Projects, projectdomain.New, f.Projects); err != nil {
			return err
		}
		if err := seedRows(ctx, report, s.stores.Contracts, contractdomain.New, f.Contracts); err != nil {
			return err
		}
		return seedRows(ctx, report, s.stores.Phases, phasedomain.NewPhase, f.Phases)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

type validator interface {
	Validate() error
}

func seedRows[T versioned.Entity](ctx context.Context, report *Report, store Store[T], newFn func() T, rows []map[string]any) error {
	if store == nil || len(rows) == 0 {
		return nil
	}
	table := newFn().Table()
	log := logging.FromContext(ctx)
	for i, row := range rows {
		e, err := decodeRow(row, newFn)
		if err != nil {
			return errors.Wrapf(err, "seed %s row %d", table, i)
		}
		id := e.Metadata().ID
		if id == "" {
			return errors.Newf("seed %s row %d: id is required", table, i)
		}
		if v, ok := any(e).(validator); ok {
			if err := v.Validate(); err != nil {
				return errors.Wrapf(err, "seed %s %s", table, id)
			}
		}

		_, err = store.Get(ctx, id)
		switch {
		case err == nil:
			report.Skipped[table]++
			continue
		case !errors.Is(err, storage.ErrNotFound):
			return errors.Wrapf(err, "seed %s %s", table, id)
		}
		if _, err := store.Create(ctx, e); err != nil {
			return errors.Wrapf(err, "seed %s %s", table, id)
		}
		report.Created[table]++
		log.Debug("seed: created", "table", table, "id", id)
	}
	return nil
}

// decodeRow round-trips the YAML row through JSON so the entity's json tags
// and null types apply.
func decodeRow[T versioned.Entity](row map[string]any, newFn func() T) (T, error) {
	e := newFn()
	raw, err := json.Marshal(row)
	if err != nil {
		return e, errors.Wrap(err, "encode row")
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return e, errors.Wrap(err, "decode row")
	}
	return e, nil
}
