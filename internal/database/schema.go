package database

import "database/sql"

// Schema version for migrations
const currentSchemaVersion = 2

// SQL migration scripts
var migrations = []migration{
	{
		version: 1,
		up: []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,

			// One row per batch or watch session
			`CREATE TABLE runs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				input_dir TEXT NOT NULL,
				output_dir TEXT NOT NULL,
				dry_run BOOLEAN NOT NULL DEFAULT 0,
				backend TEXT NOT NULL DEFAULT '',
				started_at TEXT NOT NULL,
				finished_at TEXT,
				succeeded INTEGER NOT NULL DEFAULT 0,
				failed INTEGER NOT NULL DEFAULT 0
			)`,

			// One row per processed file
			`CREATE TABLE files (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				stage TEXT NOT NULL,
				success BOOLEAN NOT NULL,
				capture_date TEXT,
				target_path TEXT,
				error TEXT,
				processed_at TEXT NOT NULL
			)`,
			`CREATE INDEX idx_files_run ON files(run_id)`,
			`INSERT INTO schema_version (version) VALUES (1)`,
		},
	},
	{
		version: 2,
		up: []string{
			// Relocation details and lookup by file name for inspect
			`ALTER TABLE files ADD COLUMN backend TEXT`,
			`ALTER TABLE files ADD COLUMN bytes INTEGER DEFAULT 0`,
			`CREATE INDEX idx_files_name ON files(name)`,
			`INSERT INTO schema_version (version) VALUES (2)`,
		},
	},
}

type migration struct {
	version int
	up      []string
}

// applyMigrations applies any pending schema migrations
func applyMigrations(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		// schema_version doesn't exist yet - this is a fresh database
		currentVersion = 0
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}

		// each migration inserts its own schema_version row
		for _, stmt := range m.up {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (h *HistoryDB) SchemaVersion() (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var v int
	err := h.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&v)
	return v, err
}
