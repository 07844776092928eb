// Package config resolves runtime configuration from the environment.
package config

import (
	"os"
	"path/filepath"
)

// Defaults place the catalog database and the export tree next to the
// binary, matching a checkout layout.
const (
	DefaultDBFile    = "db.sqlite"
	DefaultExportDir = "exports"
)

// Config carries the resolved settings for one process.
type Config struct {
	// DBPath is the sqlite catalog file. The file must already exist;
	// the service reports the store unavailable otherwise.
	DBPath string

	// ExportDir is the root of the date-keyed JSON/SQL artifact tree.
	ExportDir string
}

// FromEnv builds a Config from CANSUBMIT_* variables, falling back to
// checkout-relative defaults. Call godotenv.Load before this if a .env
// file should participate.
func FromEnv() Config {
	return Config{
		DBPath:    envOr("CANSUBMIT_DB", DefaultDBFile),
		ExportDir: envOr("CANSUBMIT_EXPORT_DIR", DefaultExportDir),
	}
}

// DBAvailable reports whether the catalog file exists. The catalog is
// provisioned out of band; a missing file is a 503, not a reason to
// create an empty database.
func (c Config) DBAvailable() bool {
	info, err := os.Stat(c.DBPath)
	return err == nil && !info.IsDir()
}

// ExportPath joins elem onto the export root.
func (c Config) ExportPath(elem ...string) string {
	return filepath.Join(append([]string{c.ExportDir}, elem...)...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
