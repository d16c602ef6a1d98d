package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"practice-analytics/internal/config"
	"practice-analytics/pkg/database"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

const version = "1.0.0"

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	dir := flag.String("dir", "migrations", "Directory holding the migration files")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("practice-migrate", version, cfg.LogLevel())
	ctx := context.Background()

	migrationFile := filepath.Join(*dir, fmt.Sprintf("001_create_schema.%s.sql", *direction))
	content, err := os.ReadFile(migrationFile)
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_READ_ERROR] Failed to read migration file", logging.Fields{
			"file": migrationFile,
		}, err)
	}

	db, err := database.NewPostgresDB(cfg.DatabaseOptions(), logger, metrics.NewCollector("practice_migrate", prometheus.NewRegistry()))
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_DB_ERROR] Failed to connect to database", logging.Fields{
			"db_host": cfg.Database.Host,
			"db_name": cfg.Database.Database,
		}, err)
	}
	defer db.Close()

	logger.Info(ctx, "[MIGRATE_START] Running migration", logging.Fields{
		"file":      migrationFile,
		"direction": *direction,
	})

	if _, err := db.ExecContext(ctx, "migrate_"+*direction, string(content)); err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to execute migration", logging.Fields{
			"file": migrationFile,
		}, err)
	}

	logger.Info(ctx, "[MIGRATE_COMPLETE] Migration completed successfully", logging.Fields{
		"direction": *direction,
	})
}
