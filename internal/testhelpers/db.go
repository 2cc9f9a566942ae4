package testhelpers

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/persistence"
)

// DatabaseURLEnv names the variable holding the base test database DSN.
const DatabaseURLEnv = "INCIDENTS_TEST_DATABASE_URL"

// SetupTestDB creates a throwaway database with the schema applied and drops
// it on cleanup. The test is skipped when no base DSN is configured.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool := CreateEmptyDB(t)
	if err := persistence.RunMigrations(context.Background(), pool, zap.NewNop()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return pool
}

// CreateEmptyDB creates a throwaway database without any schema and drops it
// on cleanup. The test is skipped when no base DSN is configured.
func CreateEmptyDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	baseURL := os.Getenv(DatabaseURLEnv)
	if baseURL == "" {
		t.Skipf("%s not set; skipping postgres test", DatabaseURLEnv)
	}

	ctx := context.Background()
	dbName := fmt.Sprintf("test_incidents_%d_%d", time.Now().UnixNano(), rand.Intn(10000))

	basePool, err := pgxpool.New(ctx, baseURL)
	if err != nil {
		t.Fatalf("connect to base database: %v", err)
	}

	if _, err := basePool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		basePool.Close()
		t.Fatalf("create test database %s: %v", dbName, err)
	}

	cfg, err := pgxpool.ParseConfig(baseURL)
	if err != nil {
		basePool.Close()
		t.Fatalf("parse base database url: %v", err)
	}
	cfg.ConnConfig.Database = dbName

	testPool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		basePool.Close()
		t.Fatalf("connect to test database: %v", err)
	}

	t.Cleanup(func() {
		testPool.Close()
		if _, err := basePool.Exec(context.Background(), fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)); err != nil {
			t.Logf("drop test database %s: %v", dbName, err)
		}
		basePool.Close()
	})

	return testPool
}
