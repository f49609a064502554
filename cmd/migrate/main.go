// Package main applies or rolls back the ledger schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lotledger/internal/config"
	"lotledger/internal/infrastructure/storage"
	"lotledger/pkg/logger"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	ctx := logger.WithLogger(context.Background(), log)

	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalw("migrations need the postgres driver", "driver", cfg.Database.Driver)
	}
	if err := storage.Migrate(ctx, cfg.Database.DSN, *down); err != nil {
		log.Fatalw("migration failed", "error", err, "down", *down)
	}
	log.Infow("migrations completed", "down", *down)
}
