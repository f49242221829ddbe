package actor

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith_SetsActor(t *testing.T) {
	ctx, err := With(context.Background(), "user-1", "  fixing budget ")
	require.NoError(t, err)

	a, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", a.ID)
	assert.Equal(t, "fixing budget", a.Note)
}

func TestWith_EmptyID(t *testing.T) {
	for _, id := range []string{"", "   "} {
		ctx, err := With(context.Background(), id, "note")
		assert.True(t, errors.Is(err, ErrEmptyActor))
		_, ok := Current(ctx)
		assert.False(t, ok)
	}
}

func TestCurrent_None(t *testing.T) {
	_, ok := Current(context.Background())
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	ctx, err := With(context.Background(), "user-1", "")
	require.NoError(t, err)

	cleared := Clear(ctx)
	_, ok := Current(cleared)
	assert.False(t, ok)

	// parent context is untouched
	_, ok = Current(ctx)
	assert.True(t, ok)
}

func TestClear_WithoutActorIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, Clear(ctx))
	assert.NotPanics(t, func() { Clear(Clear(ctx)) })
}

func TestRun_ScopesActorToCallback(t *testing.T) {
	parent := context.Background()
	var seen Actor
	err := Run(parent, "user-2", "bulk fix", func(ctx context.Context) error {
		seen, _ = Current(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: "user-2", Note: "bulk fix"}, seen)

	_, ok := Current(parent)
	assert.False(t, ok)
}

func TestRun_ConcurrentRequestsDoNotLeak(t *testing.T) {
	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	got := make([]string, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = Run(context.Background(), id, "", func(ctx context.Context) error {
				a, _ := Current(ctx)
				got[i] = a.ID
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, ids, got)
}
