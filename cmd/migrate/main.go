package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/ignite/email-delivery/internal/config"
	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/repository/postgres"
	"github.com/ignite/email-delivery/migrations"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *down > 0 {
		err = postgres.MigrateDown(db, migrations.FS, *down)
	} else {
		err = postgres.Migrate(db, migrations.FS)
	}
	if err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied", "down", *down)
}
