package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

// requiredTables are the tables the grading pipeline reads and writes.
var requiredTables = []string{"users", "comparisons"}

// Run applies pending schema migrations. It is idempotent.
func Run(db *sql.DB, log *zap.Logger) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"))
	log.Info("db_migration_start")

	src, err := iofs.New(files, "sql")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	// Closing m would also close db, which the caller still owns.
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("failed to close migration source", zap.Error(err))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("db_migration_skip",
			zap.String("detail", "schema already up to date"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil
	}
	if err != nil {
		log.Error("db_migration_failed",
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("db_migration_success",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

// SchemaStatus reports which required tables exist.
type SchemaStatus struct {
	Tables  map[string]bool
	Missing []string
}

// Ready reports whether every required table exists.
func (s SchemaStatus) Ready() bool {
	return len(s.Missing) == 0
}

// CheckSchema verifies that the ledger tables exist without modifying anything.
func CheckSchema(ctx context.Context, db *sql.DB) (SchemaStatus, error) {
	status := SchemaStatus{Tables: make(map[string]bool, len(requiredTables))}
	for _, table := range requiredTables {
		var exists bool
		err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		if err != nil {
			return SchemaStatus{}, fmt.Errorf("check table %s: %w", table, err)
		}
		status.Tables[table] = exists
		if !exists {
			status.Missing = append(status.Missing, table)
		}
	}
	return status, nil
}
