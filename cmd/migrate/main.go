package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"resume-analyzer/internal/shared/config"
	"resume-analyzer/internal/shared/storage/db"
	"resume-analyzer/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Configure(telemetry.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		telemetry.Warn("migrate.logger_config_invalid", map[string]any{"error": err})
	}
	defer telemetry.Sync()
	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		exit("migrate.config_invalid", map[string]any{"error": "DATABASE_URL is required"})
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		exit("migrate.connect_failed", map[string]any{"error": err})
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		exit("migrate.failed", map[string]any{"error": err})
	}
	telemetry.Info("migrate.done", nil)
}

func exit(msg string, fields map[string]any) {
	telemetry.Error(msg, fields)
	telemetry.Sync()
	os.Exit(1)
}
