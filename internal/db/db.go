// internal/db/db.go
package db

import (
    "context"
    "database/sql"
    _ "embed"
    "fmt"
    "time"

    _ "github.com/lib/pq"

    "github.com/unclebandit/cadence-backend/internal/config"
    "github.com/unclebandit/cadence-backend/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// Connect opens the Postgres pool described by cfg and pings it.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger logging.Logger) (*sql.DB, error) {
    if cfg.URL == "" {
        return nil, fmt.Errorf("database URL is required")
    }

    db, err := sql.Open("postgres", cfg.URL)
    if err != nil {
        return nil, fmt.Errorf("failed to open database: %w", err)
    }

    pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := db.PingContext(pingCtx); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("failed to ping database: %w", err)
    }

    db.SetMaxOpenConns(cfg.MaxOpenConns)
    db.SetMaxIdleConns(cfg.MaxIdleConns)
    db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

    logger.WithFields(logging.Fields{
        "max_open_conns":    cfg.MaxOpenConns,
        "max_idle_conns":    cfg.MaxIdleConns,
        "conn_max_lifetime": cfg.ConnMaxLifetime.String(),
    }).Info("✅ Connected to database")

    return db, nil
}

// EnsureSchema creates the scheduler tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
    if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
        return fmt.Errorf("apply schema: %w", err)
    }
    return nil
}
