package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrDatabaseNotFound is returned when a read-only open finds no database.
var ErrDatabaseNotFound = errors.New("inventory database not found")

// Open opens the inventory database at dbPath.
// If readOnly is true, the file must exist and is opened with mode=ro.
// Otherwise parent directories are created and the schema is initialised
// on first use.
func Open(dbPath string, readOnly bool) (*sql.DB, error) {
	if readOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s, run 'cdoc index' first", ErrDatabaseNotFound, dbPath)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_foreign_keys=on"
	if readOnly {
		dsn += "&mode=ro"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}

	switch {
	case version == "0" && readOnly:
		db.Close()
		return nil, fmt.Errorf("%w at %s, run 'cdoc index' first", ErrDatabaseNotFound, dbPath)
	case version == "0":
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	case version != SchemaVersion:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version %s at %s (expected %s), delete the database and re-index", version, dbPath, SchemaVersion)
	}

	return db, nil
}
