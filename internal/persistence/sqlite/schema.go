package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; each entry runs at most once, tracked in
// schema_migrations. Append only, never edit an applied entry.
var migrations = []string{
	`CREATE TABLE users (
		id              TEXT PRIMARY KEY,
		external_handle TEXT NOT NULL UNIQUE,
		first_name      TEXT NOT NULL DEFAULT '',
		last_name       TEXT NOT NULL DEFAULT '',
		language_tag    TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE TABLE projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE TABLE project_members (
		project_id TEXT NOT NULL REFERENCES projects(id),
		user_id    TEXT NOT NULL REFERENCES users(id),
		PRIMARY KEY (project_id, user_id)
	)`,
	`CREATE TABLE timeslots (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		user_id    TEXT NOT NULL REFERENCES users(id),
		created_by TEXT NOT NULL REFERENCES users(id),
		start_time TEXT NOT NULL,
		end_time   TEXT NOT NULL,
		status     TEXT NOT NULL CHECK (status IN ('available', 'busy')),
		notes      TEXT,
		label      TEXT,
		color      TEXT NOT NULL DEFAULT '',
		is_locked  INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_timeslots_project ON timeslots(project_id, start_time)`,
	`CREATE INDEX idx_timeslots_user ON timeslots(project_id, user_id, start_time)`,
}

func (cp *ConnectionPool) migrate(ctx context.Context) error {
	_, err := cp.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	err = cp.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for version := current; version < len(migrations); version++ {
		statement := migrations[version]
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return err
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
				version+1)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", version+1, err)
		}
	}
	return nil
}
