package main

import (
	"context"
	"os"

	"lexilingua-backend/config"
	"lexilingua-backend/logger"
	"lexilingua-backend/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log, err := logger.New("dev")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if cfg.Database.URL == "" {
		log.Error("database.url (DATABASE_URL) is not set")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, repository.Schema); err != nil {
		log.Fatal("failed to create completion_audit table", "error", err)
	}
	log.Info("completion_audit table ready")
}
