package db

import (
	"testing"
)

func TestMakesAndModels(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	seedCatalog(t, db, "Lada", "Vesta", "I", "Engine RPM")
	seedCatalog(t, db, "Kia", "Rio", "IV", "Coolant temperature")

	makes, err := db.Makes()
	if err != nil {
		t.Fatalf("Makes failed: %v", err)
	}
	if len(makes) != 2 {
		t.Fatalf("Makes = %v, want 2 entries", makes)
	}
	// Sorted by name
	if makes[0] != "Kia" || makes[1] != "Lada" {
		t.Errorf("Makes = %v, want [Kia Lada]", makes)
	}

	models, err := db.Models("Lada")
	if err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	if len(models) != 1 || models[0] != "Vesta" {
		t.Errorf("Models(Lada) = %v, want [Vesta]", models)
	}

	models, err = db.Models("Ford")
	if err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("Models(Ford) = %v, want empty", models)
	}
}

func TestVehiclesFilters(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	seedCatalog(t, db, "Lada", "Vesta", "I", "Engine RPM")
	seedCatalog(t, db, "Lada", "Granta", "II", "Vehicle speed")

	all, err := db.Vehicles("", "")
	if err != nil {
		t.Fatalf("Vehicles failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Vehicles = %d entries, want 2", len(all))
	}

	filtered, err := db.Vehicles("Lada", "Vesta")
	if err != nil {
		t.Fatalf("Vehicles failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Model != "Vesta" {
		t.Errorf("Vehicles(Lada, Vesta) = %v", filtered)
	}
}

func TestGenerations(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	seedCatalog(t, db, "Lada", "Vesta", "I", "Engine RPM")

	gens, err := db.Generations("Lada", "Vesta")
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(gens) != 1 {
		t.Fatalf("Generations = %v, want 1 entry", gens)
	}
	if gens[0].Label != "I" {
		t.Errorf("Label = %q, want %q", gens[0].Label, "I")
	}

	exists, err := db.GenerationExists(gens[0].ID)
	if err != nil {
		t.Fatalf("GenerationExists failed: %v", err)
	}
	if !exists {
		t.Error("GenerationExists = false for seeded generation")
	}

	exists, err = db.GenerationExists(9999)
	if err != nil {
		t.Fatalf("GenerationExists failed: %v", err)
	}
	if exists {
		t.Error("GenerationExists = true for unknown id")
	}
}

func TestParameters(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	seedCatalog(t, db, "Lada", "Vesta", "I", "Engine RPM")
	if _, err := db.Exec(`INSERT INTO canParameters (canParameterName_ru) VALUES ('Engine load')`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	all, err := db.Parameters("", 200)
	if err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Parameters = %v, want 2 entries", all)
	}

	filtered, err := db.Parameters("RPM", 200)
	if err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "Engine RPM" {
		t.Errorf("Parameters(RPM) = %v", filtered)
	}

	limited, err := db.Parameters("", 1)
	if err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Parameters with limit 1 = %d entries", len(limited))
	}
}

func TestParameterByName(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	_, paramID := seedCatalog(t, db, "Lada", "Vesta", "I", "Engine RPM")

	id, ok, err := db.ParameterByName("Engine RPM")
	if err != nil {
		t.Fatalf("ParameterByName failed: %v", err)
	}
	if !ok || id != paramID {
		t.Errorf("ParameterByName = (%d, %v), want (%d, true)", id, ok, paramID)
	}

	// Lookups are case-sensitive
	_, ok, err = db.ParameterByName("engine rpm")
	if err != nil {
		t.Fatalf("ParameterByName failed: %v", err)
	}
	if ok {
		t.Error("ParameterByName matched a differently-cased name")
	}
}

func TestSignalExists(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	genID, paramID := seedCatalog(t, db, "Lada", "Vesta", "I", "Engine RPM")

	exists, err := db.SignalExists(genID, paramID)
	if err != nil {
		t.Fatalf("SignalExists failed: %v", err)
	}
	if exists {
		t.Error("SignalExists = true before any signal rows")
	}

	seedSignal(t, db, genID, paramID)

	exists, err = db.SignalExists(genID, paramID)
	if err != nil {
		t.Fatalf("SignalExists failed: %v", err)
	}
	if !exists {
		t.Error("SignalExists = false after seeding the signal")
	}
}

func TestSignalExistsSeesCommittedSubmissions(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	genID, paramID := seedCatalog(t, db, "Lada", "Vesta", "I", "Engine RPM")

	_, err := db.Exec(`
		INSERT INTO submissions (generation_id, parameter_id, can_id, endian)
		VALUES (?, ?, '0x7E8', 'big')
	`, genID, paramID)
	if err != nil {
		t.Fatalf("failed to insert submission row: %v", err)
	}

	exists, err := db.SignalExists(genID, paramID)
	if err != nil {
		t.Fatalf("SignalExists failed: %v", err)
	}
	if !exists {
		t.Error("SignalExists = false despite a committed submission for the pair")
	}
}

func TestGenerationParameters(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	genID, paramID := seedCatalog(t, db, "Lada", "Vesta", "I", "Engine RPM")
	seedSignal(t, db, genID, paramID)
	seedSignal(t, db, genID, paramID)

	params, err := db.GenerationParameters(genID)
	if err != nil {
		t.Fatalf("GenerationParameters failed: %v", err)
	}
	if len(params) != 1 {
		t.Fatalf("GenerationParameters = %v, want 1 entry", params)
	}
	if params[0].Name != "Engine RPM" || params[0].Entries != 2 {
		t.Errorf("GenerationParameters = %+v, want Engine RPM x2", params[0])
	}
}

func TestReferenceCatalogs(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	if _, err := db.Exec(`INSERT INTO busTypes (busTypeName) VALUES ('primary'), ('auxiliary')`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO canBus (baudrate, name) VALUES (500000, 'HS-CAN')`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO dimensionTypes (dimensionName) VALUES ('rpm'), ('km/h')`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	busTypes, err := db.BusTypes()
	if err != nil {
		t.Fatalf("BusTypes failed: %v", err)
	}
	if len(busTypes) != 2 || busTypes[0].Name != "primary" {
		t.Errorf("BusTypes = %+v", busTypes)
	}

	buses, err := db.CanBuses()
	if err != nil {
		t.Fatalf("CanBuses failed: %v", err)
	}
	if len(buses) != 1 || buses[0].Baudrate == nil || *buses[0].Baudrate != 500000 {
		t.Errorf("CanBuses = %+v", buses)
	}

	dims, err := db.Dimensions()
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if len(dims) != 2 || dims[0].Name != "km/h" {
		t.Errorf("Dimensions = %+v", dims)
	}
}
