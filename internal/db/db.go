// Package db stores provisioning, validation, logging and calibration runs
// in a local sqlite database.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS returns the embedded migration files rooted at the
// migrations directory.
func MigrationsFS() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

// DB wraps the sqlite handle.
type DB struct {
	*sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens path and applies connection pragmas without touching the
// schema. The migrate subcommand uses it so it can inspect a database that
// is behind.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection and the tools are single threaded.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	return &DB{sqlDB}, nil
}

// NewDB opens path and brings the schema up to the latest embedded
// migration.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	fsys, err := MigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(fsys); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
