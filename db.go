// db.go
//
// Database helpers for the memory server.
// Responsibilities:
//   - Opening the SQLite database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded migrations (assets/sql), recorded in _migrations.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/assets"
	"github.com/robalobadob/memory/internal/results"
)

// openDB opens (and creates if missing) a SQLite database file.
// The parent directory is created for relative paths such as ./data/app.db.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dsn, err)
	}
	return db, nil
}

// migrate applies the embedded schema and logs the files that ran.
func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := assets.Migrations()
	if err != nil {
		return err
	}
	applied, err := results.Migrate(ctx, db, fsys)
	if len(applied) > 0 {
		log.Info().Strs("migrations", applied).Msg("schema updated")
	}
	return err
}
