package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema returns the DDL statements for the chess snapshot tables, in
// apply order.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS player_snapshots (
			platform    TEXT NOT NULL,
			player_id   TEXT NOT NULL,
			username    TEXT NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			title       TEXT NOT NULL DEFAULT '',
			federation  TEXT NOT NULL DEFAULT '',
			ratings     JSONB NOT NULL DEFAULT '{}',
			fetched_at  TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (platform, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS tournaments (
			platform      TEXT NOT NULL,
			tournament_id TEXT NOT NULL,
			name          TEXT NOT NULL,
			status        TEXT NOT NULL,
			rounds        INT NOT NULL DEFAULT 0,
			players       INT NOT NULL DEFAULT 0,
			starts_at     TIMESTAMPTZ,
			ends_at       TIMESTAMPTZ,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (platform, tournament_id)
		)`,
		`CREATE INDEX IF NOT EXISTS tournaments_status_idx ON tournaments (platform, status)`,
	}
}

// ApplyMigrations executes the provided SQL statements in order.
func ApplyMigrations(ctx context.Context, db *sql.DB, statements ...string) error {
	if db == nil {
		return fmt.Errorf("postgres: db is nil")
	}
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
