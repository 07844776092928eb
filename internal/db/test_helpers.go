package db

import (
	"os"
	"testing"
)

// Helper functions for creating pointer values
func strPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	fname := t.Name() + ".db"
	_ = os.Remove(fname)

	db, err := NewDB(fname)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	if err := db.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test DB: %v", err)
	}
	return db
}

func cleanupTestDB(t *testing.T, db *DB) {
	t.Helper()
	fname := t.Name() + ".db"
	db.Close()
	_ = os.Remove(fname)
	_ = os.Remove(fname + "-shm")
	_ = os.Remove(fname + "-wal")
}

// seedCatalog inserts one make/model/generation chain plus a parameter
// and returns the generation and parameter ids.
func seedCatalog(t *testing.T, db *DB, make, model, generation, parameter string) (generationID, parameterID int64) {
	t.Helper()

	res, err := db.Exec(`INSERT INTO manufacturers (manufacturerName) VALUES (?)`, make)
	if err != nil {
		t.Fatalf("failed to seed manufacturer: %v", err)
	}
	makeID, _ := res.LastInsertId()

	res, err = db.Exec(`INSERT INTO carsModels (carModelName, manufacturerId) VALUES (?, ?)`, model, makeID)
	if err != nil {
		t.Fatalf("failed to seed model: %v", err)
	}
	modelID, _ := res.LastInsertId()

	res, err = db.Exec(`INSERT INTO generations (generationName, carModelId) VALUES (?, ?)`, generation, modelID)
	if err != nil {
		t.Fatalf("failed to seed generation: %v", err)
	}
	generationID, _ = res.LastInsertId()

	res, err = db.Exec(`INSERT INTO canParameters (canParameterName_ru) VALUES (?)`, parameter)
	if err != nil {
		t.Fatalf("failed to seed parameter: %v", err)
	}
	parameterID, _ = res.LastInsertId()

	return generationID, parameterID
}

// seedSignal inserts a canData row for a (generation, parameter) pair.
func seedSignal(t *testing.T, db *DB, generationID, parameterID int64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO canData (generationId, canParameterId, PID, PIDMask, endian)
		VALUES (?, ?, X'000007E8', X'000007FF', 'big')
	`, generationID, parameterID)
	if err != nil {
		t.Fatalf("failed to seed signal: %v", err)
	}
}
