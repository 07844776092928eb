package submit

import (
	"fmt"
	"strings"
)

// BuildScript renders the hand-reviewable SQL for one batch. This is
// advisory output for a human to inspect and apply; it is never
// executed by the service, which is the only place string-built SQL is
// allowed. Catalog rows created inside the script are referenced by
// "last inserted row" chaining so the whole thing applies atomically.
func BuildScript(snap *Snapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "-- cansubmit review script\n")
	fmt.Fprintf(&sb, "-- snapshot: %s\n", snap.SnapshotID)
	fmt.Fprintf(&sb, "-- received: %s\n", snap.ReceivedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	sb.WriteString("BEGIN TRANSACTION;\n\n")

	// A custom vehicle proposes the full manufacturer/model/generation
	// chain before any signal rows can reference it.
	generationRef := "NULL"
	if snap.GenerationID != nil {
		generationRef = fmt.Sprintf("%d", *snap.GenerationID)
	} else if snap.Vehicle != nil && snap.Vehicle.Present() {
		sb.WriteString("-- proposed vehicle\n")
		fmt.Fprintf(&sb, "INSERT INTO manufacturers (manufacturerName) VALUES (%s);\n", sqlString(snap.Vehicle.Make))
		fmt.Fprintf(&sb, "INSERT INTO carsModels (carModelName, manufacturerId) VALUES (%s, last_insert_rowid());\n", sqlString(snap.Vehicle.Model))
		fmt.Fprintf(&sb, "INSERT INTO generations (generationName, carModelId) VALUES (%s, last_insert_rowid());\n\n", sqlString(snap.Vehicle.Generation))
		generationRef = "(SELECT MAX(generationId) FROM generations)"
	}

	for i, item := range snap.Items {
		title := item.CanID
		if item.ParameterName != nil {
			title = *item.ParameterName
		}
		fmt.Fprintf(&sb, "-- item %d: %s\n", i+1, title)

		parameterRef := "NULL"
		switch {
		case item.ParameterID != nil:
			parameterRef = fmt.Sprintf("%d", *item.ParameterID)
		case item.ParameterName != nil:
			fmt.Fprintf(&sb, "INSERT INTO canParameters (canParameterName_ru) VALUES (%s);\n", sqlString(*item.ParameterName))
			parameterRef = "last_insert_rowid()"
		}

		is29 := 0
		if item.Is29bit {
			is29 = 1
		}

		fmt.Fprintf(&sb, "INSERT INTO canData (generationId, canParameterId, PID, PIDMask, payloadMask, endian, formula, busTypeId, canBusId, dimensionId, is29bit)\n")
		fmt.Fprintf(&sb, "VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %d);\n\n",
			generationRef,
			parameterRef,
			hexToBlob(item.PID),
			hexToBlob(item.PIDMask),
			hexToBlob(item.PayloadMask),
			sqlString(item.Endian),
			sqlStringOrNull(item.Formula),
			sqlIntOrNull(item.BusTypeID),
			sqlIntOrNull(item.CanBusID),
			sqlIntOrNull(item.DimensionID),
			is29,
		)
	}

	sb.WriteString("COMMIT;\n")
	return sb.String()
}

// sqlString quotes a literal for the review script, doubling embedded
// quotes.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sqlStringOrNull(s *string) string {
	if s == nil {
		return "NULL"
	}
	return sqlString(*s)
}

func sqlIntOrNull(v *int64) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%d", *v)
}

// hexToBlob turns a "0xABCD" snapshot hex string into the X'ABCD' blob
// literal form.
func hexToBlob(hex string) string {
	return "X'" + strings.TrimPrefix(hex, "0x") + "'"
}
