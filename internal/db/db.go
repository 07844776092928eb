// Package db wraps the sqlite catalog that CAN signal submissions are
// reconciled against. The reference tables (manufacturers, models,
// generations, parameters, buses, dimensions, canData) are provisioned
// out of band; this package bootstraps the submissions table and serves
// the lookup queries behind the entry form.
package db

import (
	"database/sql"
	"embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

// NewDB opens the catalog database at path. Schema bootstrap is a
// separate step; see Bootstrap.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{sqlDB}, nil
}

// Bootstrap applies the embedded migrations and backfills any columns a
// legacy submissions table is missing. Must run before the first write.
func (db *DB) Bootstrap() error {
	if err := db.MigrateUp(); err != nil {
		return err
	}
	return db.ensureSubmissionColumns()
}
