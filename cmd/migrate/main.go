// Command migrate applies the schema and, when SEED_USER_EMAIL is set,
// creates the development account. Safe to run repeatedly.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/todohub/internal/config"
	"github.com/geocoder89/todohub/internal/db"
	"github.com/geocoder89/todohub/internal/observability"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("migration failed", "err", err)
		pool.Close()
		os.Exit(1)
	}

	log.Info("schema applied", "statements", len(db.Statements()))

	created, err := db.EnsureSeedUser(ctx, pool, cfg)
	if err != nil {
		log.Error("seed user failed", "err", err)
		pool.Close()
		os.Exit(1)
	}

	if created {
		log.Info("seed user created", "email", cfg.SeedUserEmail)
	}

	log.Info("migrate complete")
}
