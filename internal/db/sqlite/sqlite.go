// Package sqlite keeps accounts in a single SQLite file.
//
// SQLite allows one writer at a time, so every unit of work holds a process wide
// write lock from Begin until Commit or Rollback. Reads outside of a unit of work
// are served concurrently in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
	"usermanager/internal/db/migrations"

	_ "modernc.org/sqlite"
)

// Open creates the database file if needed and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, migrations.SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}
