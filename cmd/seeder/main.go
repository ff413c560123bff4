//cmd/seeder/main.go
package main

import (
	"context"
	"os"

	"github.com/unclebandit/cadence-backend/internal/config"
	"github.com/unclebandit/cadence-backend/internal/db"
	"github.com/unclebandit/cadence-backend/internal/logging"
)

func main() {
	logger := logging.NewLoggerWithService("cadence-seeder", "info")
	config.LoadEnv(logger)
	cfg := config.Load()

	ctx := context.Background()
	conn, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect")
	}
	defer conn.Close()

	if err := db.EnsureSchema(ctx, conn); err != nil {
		logger.WithError(err).Fatal("failed to apply schema")
	}

	seedFiles := []string{
		"seed/platforms.sql",
		"seed/workflows.sql",
		"seed/engagement_history.sql",
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.WithError(err).Fatalf("failed to read %s", file)
		}

		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			logger.WithError(err).Fatalf("failed to execute %s", file)
		}
		logger.WithField("file", file).Info("Seeded")
	}

	logger.Info("Database seeding completed successfully!")
}
