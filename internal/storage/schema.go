package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the version written to cache_metadata by CreateSchema.
const SchemaVersion = "2"

// CreateSchema creates all tables and indexes of the inventory database.
// Uses a transaction so schema creation succeeds or fails as a whole.
//
// Schema includes:
//   - runs: one row per index run, keyed by UUID
//   - files: one row per extracted source file
//   - symbols: flattened inventory records, cascade-deleted with their file
//   - cache_metadata: schema version and bookkeeping
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"files", createFilesTable},
		{"symbols", createSymbolsTable},
		{"cache_metadata", createCacheMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	bootstrapSQL := `
		INSERT INTO cache_metadata (key, value, updated_at) VALUES
			('schema_version', ?, ?),
			('last_indexed', '', ?)
	`
	if _, err := tx.Exec(bootstrapSQL, SchemaVersion, now, now); err != nil {
		return fmt.Errorf("failed to bootstrap cache_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from cache_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='cache_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check cache_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM cache_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in cache_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// SetMetadata sets or updates a cache_metadata key.
func SetMetadata(db *sql.DB, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO cache_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := db.Exec(query, key, value, now); err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

// GetMetadata returns a cache_metadata value, or "" when the key is absent.
func GetMetadata(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM cache_metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata %s: %w", key, err)
	}
	return value, nil
}

// Table DDL constants

const createRunsTable = `
CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    root_dir TEXT NOT NULL,
    backend TEXT NOT NULL,
    started_at TEXT NOT NULL,                    -- ISO 8601
    finished_at TEXT,                            -- NULL while running
    status TEXT NOT NULL DEFAULT 'running',      -- running, completed or failed
    error TEXT NOT NULL DEFAULT '',              -- Cause of a failed run
    files_discovered INTEGER NOT NULL DEFAULT 0,
    files_extracted INTEGER NOT NULL DEFAULT 0,
    files_failed INTEGER NOT NULL DEFAULT 0,
    files_cached INTEGER NOT NULL DEFAULT 0,
    files_removed INTEGER NOT NULL DEFAULT 0,
    symbol_count INTEGER NOT NULL DEFAULT 0,
    truncated_count INTEGER NOT NULL DEFAULT 0
)
`

const createFilesTable = `
CREATE TABLE files (
    file_path TEXT PRIMARY KEY,                  -- Natural key: relative path from project root
    language TEXT NOT NULL,                      -- c or cpp
    backend TEXT NOT NULL,                       -- heuristic or treesitter
    file_hash TEXT NOT NULL,                     -- SHA-256 for change detection
    size_bytes INTEGER NOT NULL DEFAULT 0,
    line_count INTEGER NOT NULL DEFAULT 0,
    symbol_count INTEGER NOT NULL DEFAULT 0,
    truncated_count INTEGER NOT NULL DEFAULT 0,
    run_id TEXT,                                 -- Run that last wrote this file
    indexed_at TEXT NOT NULL                     -- ISO 8601
)
`

const createSymbolsTable = `
CREATE TABLE symbols (
    file_path TEXT NOT NULL,
    idx INTEGER NOT NULL,                        -- Depth-first position within the file
    parent_idx INTEGER NOT NULL,                 -- -1 at top level
    kind TEXT NOT NULL,                          -- function, constructor, container, namespace, field
    name TEXT NOT NULL,
    scope TEXT NOT NULL DEFAULT '',              -- Enclosing scope path, e.g. ns::Class
    name_scope TEXT NOT NULL DEFAULT '',         -- Qualifier written in the name itself
    container_kind TEXT NOT NULL DEFAULT '',
    params TEXT NOT NULL DEFAULT '',
    return_type TEXT NOT NULL DEFAULT '',
    qualifiers TEXT NOT NULL DEFAULT '',         -- Space separated
    has_body INTEGER NOT NULL DEFAULT 0,
    text TEXT NOT NULL DEFAULT '',               -- Field text
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    truncated INTEGER NOT NULL DEFAULT 0,
    arguments TEXT NOT NULL DEFAULT '',          -- Space separated parameter names
    loc INTEGER NOT NULL DEFAULT 0,              -- Code lines in the span
    comment_lines INTEGER NOT NULL DEFAULT 0,    -- Comment-only lines in the span
    doc_text TEXT NOT NULL DEFAULT '',           -- Denormalised for search
    doc TEXT,                                    -- JSON comment, NULL when undocumented
    PRIMARY KEY (file_path, idx),
    FOREIGN KEY (file_path) REFERENCES files(file_path) ON DELETE CASCADE
)
`

const createCacheMetadataTable = `
CREATE TABLE cache_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_files_language ON files(language)",
		"CREATE INDEX idx_files_run ON files(run_id)",
		"CREATE INDEX idx_symbols_name ON symbols(name)",
		"CREATE INDEX idx_symbols_kind ON symbols(kind)",
		"CREATE INDEX idx_runs_started ON runs(started_at)",
	}
}
