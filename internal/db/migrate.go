package db

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateUp runs all pending migrations up to the latest version.
// Returns nil if no migrations were needed (already at latest version).
func (db *DB) MigrateUp() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	// Note: We don't close m here because it would close the underlying DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	// Note: We don't close m here because it would close the underlying DB connection.

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}

	return nil
}

// MigrateVersion returns the current migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (db *DB) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = m.Version()
	if err != nil && errors.Is(err, migrate.ErrNilVersion) {
		// No migrations applied yet
		return 0, false, nil
	}

	return version, dirty, err
}

// newMigrate creates a migrate instance over the embedded migration files.
func (db *DB) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{}

	return m, nil
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// submissionColumns is the full current shape of the submissions table.
// Databases created by the earliest deployments predate several of
// these; ensureSubmissionColumns backfills them in place.
var submissionColumns = map[string]string{
	"generation_id":  "INTEGER",
	"parameter_id":   "INTEGER",
	"parameter_name": "TEXT",
	"byte_indices":   "TEXT",
	"bit_indices":    "TEXT",
	"formula":        "TEXT",
	"endian":         "TEXT",
	"bus_type_id":    "INTEGER",
	"can_bus_id":     "INTEGER",
	"offset_bits":    "INTEGER",
	"length_bits":    "INTEGER",
	"dimension_id":   "INTEGER",
	"is29bit":        "INTEGER",
	"notes":          "TEXT",
}

// ensureSubmissionColumns detects a legacy submissions table shape and
// adds any missing columns. ALTER TABLE ADD COLUMN is safe to repeat
// across restarts because the check runs against the live schema.
func (db *DB) ensureSubmissionColumns() error {
	rows, err := db.Query("PRAGMA table_info(submissions)")
	if err != nil {
		return fmt.Errorf("failed to inspect submissions table: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for name, typ := range submissionColumns {
		if existing[name] {
			continue
		}
		log.Printf("[migrate] adding missing submissions column %s %s", name, typ)
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE submissions ADD COLUMN %s %s", name, typ)); err != nil {
			return fmt.Errorf("failed to add column %s: %w", name, err)
		}
	}

	return nil
}
