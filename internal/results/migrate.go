// internal/results/migrate.go
//
// Schema migrations for the results database.
//   - *.sql files from an fs.FS run in lexical order; _migrations records what has run.
//   - Each file and its _migrations row commit together. Scripts that open their own
//     transaction or switch foreign keys off cannot run inside one and are applied bare.
//   - Migrate reports the files it applied so the caller can log a schema change.

package results

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migrate applies pending migrations from fsys and returns their names.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) ([]string, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY)`); err != nil {
		return nil, fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	done, err := appliedSet(ctx, db)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, f := range files {
		name := path.Base(f)
		if done[name] {
			continue
		}
		script, err := fs.ReadFile(fsys, f)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", name, err)
		}
		if err := applyScript(ctx, db, name, string(script)); err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}
	return applied, nil
}

func appliedSet(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("list _migrations: %w", err)
	}
	defer rows.Close()
	set := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[name] = true
	}
	return set, rows.Err()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applyScript(ctx context.Context, db *sql.DB, name, script string) error {
	run := func(x execer) error {
		if _, err := x.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := x.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
		return nil
	}

	if managesOwnTx(script) {
		return run(db)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := run(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func managesOwnTx(script string) bool {
	s := strings.ToUpper(strings.Join(strings.Fields(script), " "))
	return strings.Contains(s, "BEGIN TRANSACTION") || strings.Contains(s, "PRAGMA FOREIGN_KEYS=OFF") ||
		strings.Contains(s, "PRAGMA FOREIGN_KEYS = OFF")
}
