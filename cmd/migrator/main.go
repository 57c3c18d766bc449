package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/trillium/shinobi/migrator"
	"github.com/trillium/shinobi/migrator/config"
	"github.com/trillium/shinobi/pkg/logger"
	"github.com/trillium/shinobi/pkg/pgxdb"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

func main() {
	cfg := config.New()

	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	log.Info("Starting database migrator",
		slog.String("migrationsDir", cfg.MigrationsDir),
		slog.Int("rollbackSteps", cfg.RollbackSteps),
		slog.String("initialPoolID", cfg.InitialPoolID),
		slog.String("version", version),
		slog.String("date", date),
	)

	// Cancel on SIGINT/SIGTERM or when the timeout elapses
	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(baseCtx, cfg.OperationTimeout)
	defer cancel()

	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.RollbackSteps > 0 {
		n, err := migrator.RollbackMigrations(db, cfg.MigrationsDir, cfg.RollbackSteps)
		if err != nil {
			log.Error("Failed to roll back migrations", slog.Int("reverted", n), slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("Migrations rolled back", slog.Int("reverted", n))
		return
	}

	log.Info("Applying database migrations")
	if err := migrator.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
		log.Error("Failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("Database migrations applied successfully")

	if cfg.InitialPoolID != "" {
		log.Info("Initializing checkpoint", slog.String("poolID", cfg.InitialPoolID))
		if err := migrator.InitializeCheckpoint(ctx, db, cfg.InitialPoolID); err != nil {
			log.Error("Failed to initialize checkpoint", slog.Any("error", err))
			os.Exit(1)
		}
	}

	log.Info("Database migrator completed successfully")
}
