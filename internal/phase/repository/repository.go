package repository

import (
	"context"

	"projectbeheer/backend/internal/phase/domain"
)

// Repository persists the documents and comments of phases. Writes join the
// transaction carried by ctx. Phases themselves are versioned entities and
// live in a storage.Table.
type Repository interface {
	AddDocument(ctx context.Context, d *domain.Document) error
	// ListDocuments returns the documents of the given phases, oldest first.
	ListDocuments(ctx context.Context, phaseIDs []string) ([]*domain.Document, error)
	AddComment(ctx context.Context, c *domain.Comment) error
	// GetComment returns storage.ErrNotFound when id is unknown.
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	// UpdateCommentState persists the comment's state and publication time.
	UpdateCommentState(ctx context.Context, c *domain.Comment) error
	// ListComments returns the comments of the given phases, oldest first.
	ListComments(ctx context.Context, phaseIDs []string) ([]*domain.Comment, error)
	// DeleteByPhase removes the documents and comments of a phase.
	DeleteByPhase(ctx context.Context, phaseID string) error
}
