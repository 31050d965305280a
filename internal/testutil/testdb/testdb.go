// Package testdb prepares a migrated, empty Postgres schema for integration tests.
package testdb

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/ayo6706/payment-screening/internal/db"
	"github.com/ayo6706/payment-screening/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tables = []string{
	"audit_log",
	"reversals",
	"transactions",
	"blocked_payments",
	"pending_payments",
	"block_list",
	"webhooks",
	"accounts",
	"idempotency_keys",
}

// Open connects to DATABASE_URL, applies migrations and truncates every
// table. The test is skipped when DATABASE_URL is unset.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, connString, db.PoolOptions{})
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Up(ctx, pool); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	for _, table := range tables {
		stmt := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
	return pool
}
