// Package service exposes phase-scoped reads filtered per principal and the
// phase mutations used by the transport layer.
package service

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/phase/domain"
	"projectbeheer/backend/internal/phase/repository"
	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/versioning"
	"projectbeheer/backend/internal/visibility"
)

// Service reads and writes phases and their documents and comments.
type Service struct {
	tx     storage.Transactor
	phases *versioning.Tracker[*domain.Phase]
	repo   repository.Repository
	now    func() time.Time
}

// New returns a Service.
func New(tx storage.Transactor, phases *versioning.Tracker[*domain.Phase], repo repository.Repository) *Service {
	return &Service{tx: tx, phases: phases, repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Phases lists the phases of a project that p may see, by phase number.
func (s *Service) Phases(ctx context.Context, p visibility.Principal, projectID string) ([]*domain.Phase, error) {
	all, err := s.phases.List(ctx, "project_id", projectID)
	if err != nil {
		return nil, err
	}
	out := visibility.FilterPhases(all, p)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Phase returns one phase. A phase p may not see is reported as not found.
func (s *Service) Phase(ctx context.Context, p visibility.Principal, id string) (*domain.Phase, error) {
	ph, err := s.phases.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.CanSeePhase(p, ph) {
		return nil, errors.Wrapf(storage.ErrNotFound, "phase %s", id)
	}
	return ph, nil
}

// Documents lists the documents of a phase that p may see. Unknown or
// hidden phases yield an empty list.
func (s *Service) Documents(ctx context.Context, p visibility.Principal, phaseID string) ([]*domain.Document, error) {
	phases, err := s.scope(ctx, p, phaseID)
	if err != nil || len(phases) == 0 {
		return []*domain.Document{}, err
	}
	docs, err := s.repo.ListDocuments(ctx, []string{phaseID})
	if err != nil {
		return nil, err
	}
	return visibility.FilterDocuments(docs, phases, p), nil
}

// Comments lists the comments of a phase that p may see. Unknown or hidden
// phases yield an empty list.
func (s *Service) Comments(ctx context.Context, p visibility.Principal, phaseID string) ([]*domain.Comment, error) {
	phases, err := s.scope(ctx, p, phaseID)
	if err != nil || len(phases) == 0 {
		return []*domain.Comment{}, err
	}
	comments, err := s.repo.ListComments(ctx, []string{phaseID})
	if err != nil {
		return nil, err
	}
	return visibility.FilterComments(comments, phases, p), nil
}

// ProjectDocuments lists the documents p may see across all phases of a
// project.
func (s *Service) ProjectDocuments(ctx context.Context, p visibility.Principal, projectID string) ([]*domain.Document, error) {
	phases, err := s.Phases(ctx, p, projectID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(phases))
	for _, ph := range phases {
		ids = append(ids, ph.ID)
	}
	docs, err := s.repo.ListDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}
	return visibility.FilterDocuments(docs, phases, p), nil
}

func (s *Service) scope(ctx context.Context, p visibility.Principal, phaseID string) ([]*domain.Phase, error) {
	ph, err := s.phases.Get(ctx, phaseID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return visibility.FilterPhases([]*domain.Phase{ph}, p), nil
}

// PhaseUpdate holds the fields a phase update may change. Nil fields are
// left alone.
type PhaseUpdate struct {
	Status        *domain.Status
	SupplierID    *null.String
	ResponsibleID *null.String
	Name          *string
}

// UpdatePhase applies u if the phase is still at expected.
func (s *Service) UpdatePhase(ctx context.Context, p visibility.Principal, id string, expected int64, u PhaseUpdate) (*domain.Phase, error) {
	if !p.IsInternal() {
		return nil, apperr.Forbidden("only staff may change phases")
	}
	return s.phases.Update(ctx, id, expected, func(ph *domain.Phase) error {
		if u.Status != nil {
			if *u.Status == domain.StatusInProgress && !ph.ActualStart.Valid {
				ph.ActualStart = null.TimeFrom(s.now())
			}
			if *u.Status == domain.StatusCompleted && !ph.ActualEnd.Valid {
				ph.ActualEnd = null.TimeFrom(s.now())
			}
			ph.Status = *u.Status
		}
		if u.SupplierID != nil {
			ph.SupplierID = *u.SupplierID
		}
		if u.ResponsibleID != nil {
			ph.ResponsibleID = *u.ResponsibleID
		}
		if u.Name != nil {
			ph.Name = *u.Name
		}
		return apperr.Invalid(ph.Validate())
	})
}

// DeletePhase removes a phase still at expected together with its documents
// and comments. Staff only.
func (s *Service) DeletePhase(ctx context.Context, p visibility.Principal, id string, expected int64) error {
	if !p.IsInternal() {
		return apperr.Forbidden("only staff may delete phases")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.phases.Delete(ctx, id, expected); err != nil {
			return err
		}
		return s.repo.DeleteByPhase(ctx, id)
	})
}

// AddDocument attaches d to its phase. Only staff upload documents.
func (s *Service) AddDocument(ctx context.Context, p visibility.Principal, d *domain.Document) error {
	if !p.IsInternal() {
		return apperr.Forbidden("only staff may upload documents")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = s.now()
	if err := d.Validate(); err != nil {
		return apperr.Invalid(err)
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.phases.Get(ctx, d.PhaseID); err != nil {
			return err
		}
		return s.repo.AddDocument(ctx, d)
	})
}

// AddComment posts c on its phase. A supplier may only comment on a phase it
// can see, and its comments are always supplier-facing.
func (s *Service) AddComment(ctx context.Context, p visibility.Principal, c *domain.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = s.now()
	if !p.IsInternal() {
		c.Type = domain.CommentSupplierFacing
	}
	if err := c.Validate(); err != nil {
		return apperr.Invalid(err)
	}
	if c.State == domain.CommentPublished {
		c.PublishedAt = null.TimeFrom(c.CreatedAt)
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.Phase(ctx, p, c.PhaseID); err != nil {
			return err
		}
		return s.repo.AddComment(ctx, c)
	})
}

// PublishComment publishes a draft. Only the author or staff may publish.
func (s *Service) PublishComment(ctx context.Context, p visibility.Principal, userID, id string) (*domain.Comment, error) {
	return s.transition(ctx, p, userID, id, func(c *domain.Comment) error { return c.Publish(s.now()) })
}

// ArchiveComment archives a comment. Archived comments are hidden from
// suppliers.
func (s *Service) ArchiveComment(ctx context.Context, p visibility.Principal, userID, id string) (*domain.Comment, error) {
	return s.transition(ctx, p, userID, id, (*domain.Comment).Archive)
}

func (s *Service) transition(ctx context.Context, p visibility.Principal, userID, id string, apply func(*domain.Comment) error) (*domain.Comment, error) {
	var out *domain.Comment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetComment(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.Phase(ctx, p, c.PhaseID); err != nil {
			return err
		}
		if !p.IsInternal() && c.AuthorID != userID {
			return apperr.Forbidden("only the author may change this comment")
		}
		if err := apply(c); err != nil {
			return err
		}
		if err := s.repo.UpdateCommentState(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}
