// Package main applies or rolls back database migrations.
//
// Usage:
//
//	migrate up    apply all pending migrations
//	migrate down  roll back the most recent migration
package main

import (
	"context"
	"fmt"
	"os"

	"salesflow/internal/config"
	"salesflow/internal/infrastructure/storage/postgres"
	"salesflow/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: migrate <up|down>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	switch os.Args[1] {
	case "up":
		err = postgres.RunMigrations(ctx, cfg.DatabaseURL)
	case "down":
		err = postgres.RollbackMigration(ctx, cfg.DatabaseURL)
	default:
		fmt.Printf("unknown command %q\n", os.Args[1])
		os.Exit(2)
	}

	if err != nil {
		log.Fatalw("migration failed", "error", err)
	}

	log.Info("done")
}
