package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
)

// ErrInvalidTransition is returned when a comment cannot move to the
// requested state.
var ErrInvalidTransition = errors.New("invalid comment state transition")

type CommentType string

const (
	CommentInternal       CommentType = "internal"
	CommentSupplierFacing CommentType = "supplier_facing"
)

type CommentState string

const (
	CommentDraft     CommentState = "draft"
	CommentPublished CommentState = "published"
	CommentArchived  CommentState = "archived"
)

// Comment is a remark on a phase. Comments are not versioned.
type Comment struct {
	ID          string       `json:"id"`
	PhaseID     string       `json:"phase_id"`
	AuthorID    string       `json:"author_id"`
	Type        CommentType  `json:"type"`
	State       CommentState `json:"state"`
	Body        string       `json:"body"`
	CreatedAt   time.Time    `json:"created_at"`
	PublishedAt null.Time    `json:"published_at"`
}

// Validate checks the comment before it is stored.
func (c *Comment) Validate() error {
	if c.PhaseID == "" || c.AuthorID == "" || c.Body == "" {
		return errors.New("comment needs a phase, author and body")
	}
	switch c.Type {
	case CommentInternal, CommentSupplierFacing:
	default:
		return errors.Newf("unknown comment type %q", c.Type)
	}
	if c.State == "" {
		c.State = CommentDraft
	}
	switch c.State {
	case CommentDraft, CommentPublished:
	default:
		return errors.Newf("comment cannot be created as %q", c.State)
	}
	return nil
}

// Publish moves a draft to published.
func (c *Comment) Publish(at time.Time) error {
	if c.State != CommentDraft {
		return errors.Wrapf(ErrInvalidTransition, "publish %s comment", c.State)
	}
	c.State = CommentPublished
	c.PublishedAt = null.TimeFrom(at)
	return nil
}

// Archive retires a comment. Archiving twice is an error.
func (c *Comment) Archive() error {
	if c.State == CommentArchived {
		return errors.Wrap(ErrInvalidTransition, "comment already archived")
	}
	c.State = CommentArchived
	return nil
}
