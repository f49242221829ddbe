// Package actor carries the principal performing a mutation, plus an optional
// change note, through a request-scoped context.Context.
package actor

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrEmptyActor is returned by With when the actor id is blank.
var ErrEmptyActor = errors.New("actor: actor id must not be empty")

// Actor identifies who causes the next mutations and why.
type Actor struct {
	ID   string
	Note string
}

type contextKey struct{ name string }

var actorKey = contextKey{"actor"}

// With returns a context carrying the given actor. The note is optional.
func With(ctx context.Context, actorID, note string) (context.Context, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return ctx, ErrEmptyActor
	}
	return context.WithValue(ctx, actorKey, &Actor{ID: actorID, Note: strings.TrimSpace(note)}), nil
}

// Clear returns a context in which no actor is active. Clearing a context
// without an actor is a no-op.
func Clear(ctx context.Context) context.Context {
	if _, ok := Current(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, actorKey, (*Actor)(nil))
}

// Current returns the active actor, or false when none is set.
func Current(ctx context.Context) (Actor, bool) {
	a, _ := ctx.Value(actorKey).(*Actor)
	if a == nil {
		return Actor{}, false
	}
	return *a, true
}

// Run executes fn with the actor installed. The actor is only visible to fn
// and whatever fn derives from its context.
func Run(ctx context.Context, actorID, note string, fn func(ctx context.Context) error) error {
	actorCtx, err := With(ctx, actorID, note)
	if err != nil {
		return err
	}
	return fn(actorCtx)
}
