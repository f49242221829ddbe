// Package db opens the Postgres pool and holds the embedded schema
// migrations.
package db

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"

	"projectbeheer/backend/internal/logging"
)

// MaxConns caps the pool size.
const MaxConns = 20

// Open creates a traced pgx pool for dsn and pings it, retrying up to
// attempts times so the server can start alongside the database. Caller must
// call Close when done.
func Open(ctx context.Context, dsn string, attempts uint) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("db: DATABASE_URL is not set")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "db: parse DATABASE_URL")
	}
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()
	cfg.MaxConns = MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "db: create pool")
	}
	if attempts == 0 {
		attempts = 1
	}
	err = retry.Do(
		func() error { return pool.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.FromContext(ctx).WarnContext(ctx, "db: ping failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "db: ping")
	}
	return pool, nil
}
