// seed loads development fixtures (SEED_FILE, default seed/dev.yaml) without
// audit entries. Idempotent: rows whose id already exists are skipped.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"projectbeheer/backend/internal/app"
	"projectbeheer/backend/internal/config"
	"projectbeheer/backend/internal/logging"
	"projectbeheer/backend/internal/seed"
)

func main() {
	file := flag.String("file", "", "Fixture file; overrides SEED_FILE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		logger.Error("seed: DATABASE_URL is not set")
		os.Exit(1)
	}
	path := cfg.SeedFile
	if *file != "" {
		path = *file
	}

	ctx := logging.WithLogger(context.Background(), logger)
	fixtures, err := seed.Load(path)
	if err != nil {
		logger.Error("seed", "error", err)
		os.Exit(1)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("storage", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	report, err := a.Seeder().Run(ctx, fixtures)
	if err != nil {
		logger.Error("seed", "file", path, "error", err)
		a.Close()
		os.Exit(1)
	}
	for table, n := range report.Created {
		logger.Info("seeded", "table", table, "created", n)
	}
	for table, n := range report.Skipped {
		logger.Info("already present", "table", table, "skipped", n)
	}
}
