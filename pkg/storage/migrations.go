package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: users, workspaces and recorded costs
	`CREATE TABLE IF NOT EXISTS users (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		username           TEXT NOT NULL UNIQUE,
		contact_email      TEXT NOT NULL DEFAULT '',
		limit_override_usd REAL,
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS workspaces (
		id                        INTEGER PRIMARY KEY AUTOINCREMENT,
		namespace                 TEXT NOT NULL UNIQUE,
		google_project            TEXT NOT NULL,
		billing_account           TEXT NOT NULL,
		creator_id                INTEGER NOT NULL REFERENCES users(id),
		active                    INTEGER NOT NULL DEFAULT 1,
		billing_status            TEXT NOT NULL DEFAULT 'ACTIVE' CHECK(billing_status IN ('ACTIVE', 'INACTIVE')),
		initial_credits_exhausted INTEGER NOT NULL DEFAULT 0,
		updated_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_workspaces_creator ON workspaces(creator_id);

	CREATE TABLE IF NOT EXISTS user_costs (
		user_id    INTEGER PRIMARY KEY,
		cost_usd   REAL NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		if err := applyMigration(db, i+1, migrations[i]); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, version int, stmt string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("run migration %d: %w", version, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}
	return nil
}
