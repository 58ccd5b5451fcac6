package storage

import "database/sql"

// migrateV001 creates the initial daytrail schema. Every statement uses
// IF NOT EXISTS for idempotency.
//
// events is the on-disk form of the per-day buckets: one row per
// (day, identity key). Attributes are stored as a JSON object so keys
// written by a newer version load unchanged under an older one.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			day        TEXT NOT NULL,
			key        TEXT NOT NULL,
			source     TEXT NOT NULL,
			subject    TEXT NOT NULL,
			ts         DATETIME NOT NULL,
			attrs      TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (day, key)
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			summary     TEXT NOT NULL DEFAULT '{}'
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_ts      ON events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_source  ON events(source)`,
		`CREATE INDEX IF NOT EXISTS idx_events_day_ts  ON events(day, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started   ON runs(started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
