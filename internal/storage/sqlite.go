package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures required tables exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables/indexes if missing.
//
// The partial unique index on environments enforces the one-active-environment
// rule per workflow identity; concurrent creators race on it and the loser
// falls back to fetching the winner's row.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS environments (
  id                  TEXT PRIMARY KEY,
  codebase_id         TEXT NOT NULL,
  workflow_type       TEXT NOT NULL,
  workflow_id         TEXT NOT NULL,
  provider            TEXT NOT NULL DEFAULT 'worktree',
  working_path        TEXT NOT NULL,
  branch_name         TEXT NOT NULL,
  status              TEXT NOT NULL,
  created_at          TEXT NOT NULL,
  created_by_platform TEXT NOT NULL DEFAULT '',
  destroyed_at        TEXT,
  metadata            JSON NOT NULL DEFAULT '{}'
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS environments_active_identity_idx
  ON environments(codebase_id, workflow_type, workflow_id)
  WHERE status = 'active';`,
		`CREATE INDEX IF NOT EXISTS environments_codebase_status_idx
  ON environments(codebase_id, status);`,
		`CREATE TABLE IF NOT EXISTS conversation_refs (
  conversation_id TEXT PRIMARY KEY,
  environment_id  TEXT NOT NULL REFERENCES environments(id),
  attached_at     TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS conversation_refs_environment_idx
  ON conversation_refs(environment_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
