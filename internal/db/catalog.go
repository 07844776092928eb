package db

import (
	"database/sql"
	"fmt"
)

// Vehicle is one make/model pair from the reference catalog.
type Vehicle struct {
	ID    int64  `json:"id"`
	Make  string `json:"make"`
	Model string `json:"model"`
}

// Generation is a production revision of a model.
type Generation struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Parameter is a named CAN parameter from the catalog.
type Parameter struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BusType is a bus protocol entry.
type BusType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CanBus is a physical bus entry (baudrate plus optional label).
type CanBus struct {
	ID       int64   `json:"id"`
	Baudrate *int64  `json:"baudrate"`
	Name     *string `json:"name"`
}

// Dimension is a unit-of-measure entry.
type Dimension struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GenerationParameter summarises how many signal rows a parameter
// already has for one generation.
type GenerationParameter struct {
	Name    string `json:"name"`
	Entries int64  `json:"entries"`
}

// Makes returns the distinct non-blank manufacturer names, sorted.
func (db *DB) Makes() ([]string, error) {
	rows, err := db.Query(`
		SELECT DISTINCT manufacturerName FROM manufacturers
		WHERE manufacturerName IS NOT NULL AND TRIM(manufacturerName) <> ''
		ORDER BY manufacturerName
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query makes: %w", err)
	}
	defer rows.Close()

	var makes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		makes = append(makes, name)
	}
	return makes, rows.Err()
}

// Models returns the distinct model names for a manufacturer.
func (db *DB) Models(make string) ([]string, error) {
	rows, err := db.Query(`
		SELECT DISTINCT m.carModelName
		FROM carsModels m
		JOIN manufacturers mf ON m.manufacturerId = mf.manufacturerId
		WHERE mf.manufacturerName = ?
		  AND m.carModelName IS NOT NULL AND TRIM(m.carModelName) <> ''
		ORDER BY m.carModelName
	`, make)
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var models []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		models = append(models, name)
	}
	return models, rows.Err()
}

// Vehicles lists make/model pairs, optionally filtered by either.
func (db *DB) Vehicles(make, model string) ([]Vehicle, error) {
	query := `
		SELECT m.carModelId, mf.manufacturerName, m.carModelName
		FROM carsModels m
		JOIN manufacturers mf ON m.manufacturerId = mf.manufacturerId
	`
	var where []string
	var params []any
	if make != "" {
		where = append(where, "mf.manufacturerName = ?")
		params = append(params, make)
	}
	if model != "" {
		where = append(where, "m.carModelName = ?")
		params = append(params, model)
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY mf.manufacturerName, m.carModelName"

	rows, err := db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Make, &v.Model); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// Generations lists the generations of a make/model with display labels.
func (db *DB) Generations(make, model string) ([]Generation, error) {
	rows, err := db.Query(`
		SELECT g.generationId, g.generationName, g.MajorVersion, g.MinorVersion
		FROM generations g
		JOIN carsModels m ON g.carModelId = m.carModelId
		JOIN manufacturers mf ON m.manufacturerId = mf.manufacturerId
		WHERE mf.manufacturerName = ? AND m.carModelName = ?
		ORDER BY g.generationName
	`, make, model)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var gens []Generation
	for rows.Next() {
		var (
			g            Generation
			name         sql.NullString
			major, minor sql.NullInt64
		)
		if err := rows.Scan(&g.ID, &name, &major, &minor); err != nil {
			return nil, err
		}
		g.Label = name.String
		if g.Label == "" {
			g.Label = fmt.Sprintf("generation %d", g.ID)
		}
		if major.Valid {
			g.Label = fmt.Sprintf("%s %d.%d", g.Label, major.Int64, minor.Int64)
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// Parameters returns catalog parameters matching an optional substring
// filter, capped at limit.
func (db *DB) Parameters(query string, limit int) ([]Parameter, error) {
	sqlText := `
		SELECT canParameterId, canParameterName_ru FROM canParameters
		WHERE canParameterName_ru IS NOT NULL AND TRIM(canParameterName_ru) <> ''
	`
	var params []any
	if query != "" {
		sqlText += " AND canParameterName_ru LIKE ?"
		params = append(params, "%"+query+"%")
	}
	sqlText += " ORDER BY canParameterName_ru LIMIT ?"
	params = append(params, limit)

	rows, err := db.Query(sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer rows.Close()

	var out []Parameter
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ParameterByName looks up a parameter by exact (case-sensitive) name.
func (db *DB) ParameterByName(name string) (int64, bool, error) {
	var id int64
	err := db.QueryRow(`
		SELECT canParameterId FROM canParameters
		WHERE canParameterName_ru = ?
		ORDER BY canParameterId LIMIT 1
	`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up parameter %q: %w", name, err)
	}
	return id, true, nil
}

// SignalExists reports whether the (generation, parameter) pair is
// already covered, either by a curated canData row or by an earlier
// committed submission still awaiting review.
func (db *DB) SignalExists(generationID, parameterID int64) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM canData
			 WHERE generationId = ? AND canParameterId = ?) +
			(SELECT COUNT(*) FROM submissions
			 WHERE generation_id = ? AND parameter_id = ?)
	`, generationID, parameterID, generationID, parameterID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing signal: %w", err)
	}
	return count > 0, nil
}

// BusTypes returns the bus protocol catalog.
func (db *DB) BusTypes() ([]BusType, error) {
	rows, err := db.Query(`SELECT busTypeId, busTypeName FROM busTypes ORDER BY busTypeId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bus types: %w", err)
	}
	defer rows.Close()

	var out []BusType
	for rows.Next() {
		var b BusType
		var name sql.NullString
		if err := rows.Scan(&b.ID, &name); err != nil {
			return nil, err
		}
		b.Name = name.String
		out = append(out, b)
	}
	return out, rows.Err()
}

// CanBuses returns the physical bus catalog.
func (db *DB) CanBuses() ([]CanBus, error) {
	rows, err := db.Query(`SELECT canBusId, baudrate, name FROM canBus ORDER BY canBusId`)
	if err != nil {
		return nil, fmt.Errorf("failed to query can buses: %w", err)
	}
	defer rows.Close()

	var out []CanBus
	for rows.Next() {
		var b CanBus
		if err := rows.Scan(&b.ID, &b.Baudrate, &b.Name); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Dimensions returns the unit-of-measure catalog.
func (db *DB) Dimensions() ([]Dimension, error) {
	rows, err := db.Query(`SELECT dimensionId, dimensionName FROM dimensionTypes ORDER BY dimensionName`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dimensions: %w", err)
	}
	defer rows.Close()

	var out []Dimension
	for rows.Next() {
		var d Dimension
		var name sql.NullString
		if err := rows.Scan(&d.ID, &name); err != nil {
			return nil, err
		}
		d.Name = name.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// GenerationParameters lists the parameters that already have signal
// rows for a generation, with per-parameter row counts.
func (db *DB) GenerationParameters(generationID int64) ([]GenerationParameter, error) {
	rows, err := db.Query(`
		SELECT p.canParameterName_ru, COUNT(*)
		FROM canData d
		JOIN canParameters p ON d.canParameterId = p.canParameterId
		WHERE d.generationId = ?
		GROUP BY p.canParameterName_ru
		ORDER BY p.canParameterName_ru
	`, generationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation parameters: %w", err)
	}
	defer rows.Close()

	var out []GenerationParameter
	for rows.Next() {
		var gp GenerationParameter
		if err := rows.Scan(&gp.Name, &gp.Entries); err != nil {
			return nil, err
		}
		out = append(out, gp)
	}
	return out, rows.Err()
}

// GenerationExists reports whether a generation id is present in the
// catalog.
func (db *DB) GenerationExists(id int64) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM generations WHERE generationId = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check generation: %w", err)
	}
	return count > 0, nil
}
