package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"lumia-router/internal/logger"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// DefaultPath returns router.db in the working directory, falling back to the
// executable's directory.
func DefaultPath() string {
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "router.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "router.db")
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	if path == "" {
		path = DefaultPath()
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Missing table on a fresh file leaves version at 0.
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS config (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS items (
				code            INTEGER PRIMARY KEY,
				name            TEXT NOT NULL DEFAULT '',
				item_type       TEXT NOT NULL DEFAULT '',
				grade           TEXT NOT NULL DEFAULT '',
				make_material_1 INTEGER NOT NULL DEFAULT 0,
				make_material_2 INTEGER NOT NULL DEFAULT 0,
				initial_count   INTEGER NOT NULL DEFAULT 1,
				common          INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS item_drops (
				item_code INTEGER NOT NULL REFERENCES items(code) ON DELETE CASCADE,
				area_code INTEGER NOT NULL,
				count     INTEGER NOT NULL,
				PRIMARY KEY (item_code, area_code)
			);
			CREATE INDEX IF NOT EXISTS idx_item_drops_area ON item_drops(area_code);

			CREATE TABLE IF NOT EXISTS characters (
				code         INTEGER PRIMARY KEY,
				name         TEXT NOT NULL DEFAULT '',
				weapon_types TEXT NOT NULL DEFAULT '[]'
			);

			CREATE TABLE IF NOT EXISTS character_start_items (
				character_code INTEGER NOT NULL REFERENCES characters(code) ON DELETE CASCADE,
				weapon_type    TEXT NOT NULL,
				item_code      INTEGER NOT NULL,
				count          INTEGER NOT NULL,
				PRIMARY KEY (character_code, weapon_type, item_code)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS search_history (
				id          TEXT PRIMARY KEY,
				timestamp   TEXT NOT NULL,
				status      TEXT NOT NULL,
				total       INTEGER NOT NULL DEFAULT 0,
				examined    INTEGER NOT NULL DEFAULT 0,
				route_size  INTEGER NOT NULL DEFAULT 0,
				route_count INTEGER NOT NULL DEFAULT 0,
				duration_ms INTEGER NOT NULL DEFAULT 0,
				params_json TEXT NOT NULL DEFAULT '{}',
				error       TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_search_history_ts ON search_history(timestamp);

			CREATE TABLE IF NOT EXISTS search_routes (
				search_id TEXT NOT NULL REFERENCES search_history(id) ON DELETE CASCADE,
				ord       INTEGER NOT NULL,
				areas     TEXT NOT NULL,
				PRIMARY KEY (search_id, ord)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (search history)")
	}

	return nil
}
