package db

import (
	"context"
	"os"
	"testing"
	"usermanager/internal/db/migrations"

	"github.com/jackc/pgx/v4/pgxpool"
)

// CreateTestPool skips the test unless TEST_POSTGRESQL_URL points to a disposable database.
func CreateTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	connString := os.Getenv("TEST_POSTGRESQL_URL")
	if connString == "" {
		t.Skip("TEST_POSTGRESQL_URL is not set")
	}
	if err := migrations.ApplyPostgres(connString); err != nil {
		t.Fatalf("Could not apply DB migrations: %v", err)
	}

	pool, err := pgxpool.Connect(context.Background(), connString)
	if err != nil {
		t.Fatalf("Could not connect to the database: %v", err)
	}
	return pool
}

func TruncateTables(pool *pgxpool.Pool) {
	_, err := pool.Exec(context.Background(), `TRUNCATE "user"`)
	if err != nil {
		panic("Could not truncate DB tables.")
	}
}
