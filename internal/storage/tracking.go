package storage

import "context"

type trackingKey struct{}

// Untracked runs fn in a transaction with audit tracking disabled. Mutations
// made through the context handed to fn still execute and still bump
// versions, but produce no audit entries. The switch lives only on that
// context, so it is off again once fn returns, whatever the outcome, and
// concurrent operations never see it.
func Untracked(ctx context.Context, tx Transactor, fn func(ctx context.Context) error) error {
	return tx.InTx(context.WithValue(ctx, trackingKey{}, true), fn)
}

// TrackingEnabled reports whether mutations made with ctx must be audited.
func TrackingEnabled(ctx context.Context) bool {
	disabled, _ := ctx.Value(trackingKey{}).(bool)
	return !disabled
}
