// internal/common/database/migrate.go
package database

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func migrationDir(d Dialect) (dir, gooseDialect string) {
	if d == DialectPostgres {
		return "migrations/postgres", "postgres"
	}
	return "migrations/sqlite", "sqlite3"
}

func withGoose(d Dialect, fn func(dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir, dialect := migrationDir(d)
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return fn(dir)
}

// RunMigrations applies all pending migrations for the client's dialect.
// Safe to call on every startup.
func RunMigrations(ctx context.Context, c *SQLClient) error {
	return withGoose(c.Dialect, func(dir string) error {
		if err := goose.UpContext(ctx, c.DB, dir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigrations rolls back the last N migrations.
func RollbackMigrations(ctx context.Context, c *SQLClient, steps int) error {
	return withGoose(c.Dialect, func(dir string) error {
		for range steps {
			if err := goose.DownContext(ctx, c.DB, dir); err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
		}
		return nil
	})
}

// MigrationVersion returns the current migration version.
func MigrationVersion(ctx context.Context, c *SQLClient) (int64, error) {
	var version int64
	err := withGoose(c.Dialect, func(string) error {
		v, err := goose.GetDBVersionContext(ctx, c.DB)
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}
