package db

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Submission is one persisted signal-encoding record. Exactly one of
// ParameterID and ParameterName is non-null: a resolved catalog id wins,
// an unmatched proposed name is stored verbatim.
type Submission struct {
	ID            int64     `json:"id"`
	GenerationID  *int64    `json:"generation_id"`
	ParameterID   *int64    `json:"parameter_id"`
	ParameterName *string   `json:"parameter_name"`
	ByteIndices   []int     `json:"byte_indices"`
	BitIndices    []int     `json:"bit_indices"`
	CanID         string    `json:"can_id"`
	Formula       *string   `json:"formula"`
	Endian        string    `json:"endian"`
	BusTypeID     *int64    `json:"bus_type_id"`
	CanBusID      *int64    `json:"can_bus_id"`
	OffsetBits    *int64    `json:"offset_bits"`
	LengthBits    *int64    `json:"length_bits"`
	DimensionID   *int64    `json:"dimension_id"`
	Is29bit       bool      `json:"is29bit"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// InsertSubmission writes one submission row and sets sub.ID. Each
// insert is its own commit; there is no cross-row transaction.
func (db *DB) InsertSubmission(sub *Submission) (int64, error) {
	is29 := 0
	if sub.Is29bit {
		is29 = 1
	}

	result, err := db.Exec(`
		INSERT INTO submissions (
			generation_id, parameter_id, parameter_name,
			byte_indices, bit_indices, can_id, formula, endian,
			bus_type_id, can_bus_id, offset_bits, length_bits,
			dimension_id, is29bit, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.GenerationID,
		sub.ParameterID,
		sub.ParameterName,
		joinInts(sub.ByteIndices),
		joinInts(sub.BitIndices),
		sub.CanID,
		sub.Formula,
		sub.Endian,
		sub.BusTypeID,
		sub.CanBusID,
		sub.OffsetBits,
		sub.LengthBits,
		sub.DimensionID,
		is29,
		sub.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	sub.ID = id
	return id, nil
}

// GetSubmission reads one submission row back by id.
func (db *DB) GetSubmission(id int64) (*Submission, error) {
	var (
		sub          Submission
		bytesText    string
		bitsText     string
		is29         int
		createdAtRaw string
	)

	err := db.QueryRow(`
		SELECT id, generation_id, parameter_id, parameter_name,
			COALESCE(byte_indices, ''), COALESCE(bit_indices, ''),
			can_id, formula, endian, bus_type_id, can_bus_id,
			offset_bits, length_bits, dimension_id,
			COALESCE(is29bit, 0), notes, created_at
		FROM submissions WHERE id = ?
	`, id).Scan(
		&sub.ID,
		&sub.GenerationID,
		&sub.ParameterID,
		&sub.ParameterName,
		&bytesText,
		&bitsText,
		&sub.CanID,
		&sub.Formula,
		&sub.Endian,
		&sub.BusTypeID,
		&sub.CanBusID,
		&sub.OffsetBits,
		&sub.LengthBits,
		&sub.DimensionID,
		&is29,
		&sub.Notes,
		&createdAtRaw,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission %d: %w", id, err)
	}

	sub.ByteIndices = splitInts(bytesText)
	sub.BitIndices = splitInts(bitsText)
	sub.Is29bit = is29 == 1
	if ts, err := time.Parse("2006-01-02 15:04:05", createdAtRaw); err == nil {
		sub.CreatedAt = ts
	}

	return &sub, nil
}

// CountSubmissions returns the number of submission rows.
func (db *DB) CountSubmissions() (int64, error) {
	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM submissions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// joinInts serialises an ordered selection list as "0,1,2". Empty
// selections store as the empty string, not NULL, so round-trips are
// unambiguous.
func joinInts(values []int) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(text string) []int {
	if text == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(text, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
