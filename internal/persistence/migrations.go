package persistence

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const migrationsTable = "schema_migrations_incidents"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// EnsureSchema applies the embedded migrations to the primary and the replica
// pools. Running it again is a no-op. When both handles share one pool the
// migrations run once.
func EnsureSchema(ctx context.Context, primary, replica *pgxpool.Pool, logger *zap.Logger) error {
	if primary == nil {
		return errors.New("ensure schema: primary pool not configured")
	}
	if err := RunMigrations(ctx, primary, logger.With(zap.String("pool", "primary"))); err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	if replica == nil || replica == primary {
		return nil
	}
	if err := RunMigrations(ctx, replica, logger.With(zap.String("pool", "replica"))); err != nil {
		return fmt.Errorf("replica: %w", err)
	}
	return nil
}

// RunMigrations applies all pending up migrations to one pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs driver: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() {
		_ = sqlDB.Close()
	}()

	dbDriver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}
	defer func() {
		_ = dbDriver.Close()
	}()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return errors.New("schema migration is dirty, fix it before starting")
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("migrations applied", zap.Uint("version", version))
	return nil
}
