package storage

import (
	"context"
	"sync"
)

// Hooks collects callbacks to run once the surrounding transaction commits.
// Backends create one per transaction and call Run after a successful commit;
// a rolled-back transaction drops them.
type Hooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

type hooksKey struct{}

// WithHooks attaches h to ctx. Backends call this when opening a transaction.
func WithHooks(ctx context.Context, h *Hooks) context.Context {
	return context.WithValue(ctx, hooksKey{}, h)
}

// AfterCommit schedules fn to run after the transaction in ctx commits. Outside
// a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	h, _ := ctx.Value(hooksKey{}).(*Hooks)
	if h == nil {
		fn(ctx)
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run executes the collected callbacks in registration order.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	ctx = context.WithoutCancel(ctx)
	for _, fn := range fns {
		fn(ctx)
	}
}
