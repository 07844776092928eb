package submit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/opencandb/cansubmit/internal/fsutil"
)

// Snapshot is the audit-trail record of one accepted batch. It is
// written once per batch, alongside the reviewable SQL script.
type Snapshot struct {
	SnapshotID   string         `json:"snapshot_id"`
	ReceivedAt   time.Time      `json:"received_at"`
	GenerationID *int64         `json:"generation_id"`
	Vehicle      *Descriptor    `json:"vehicle,omitempty"`
	Items        []SnapshotItem `json:"items"`
}

// SnapshotItem is one item of a snapshot with its computed binary
// encoding and assigned submission row id.
type SnapshotItem struct {
	SubmissionID  int64   `json:"submission_id"`
	ParameterID   *int64  `json:"parameter_id"`
	ParameterName *string `json:"parameter_name"`
	CanID         string  `json:"can_id"`
	PID           string  `json:"pid"`
	PIDMask       string  `json:"pid_mask"`
	PayloadMask   string  `json:"payload_mask"`
	Endian        string  `json:"endian"`
	Is29bit       bool    `json:"is29bit"`
	Formula       *string `json:"formula"`
	BusTypeID     *int64  `json:"bus_type_id"`
	CanBusID      *int64  `json:"can_bus_id"`
	DimensionID   *int64  `json:"dimension_id"`
	OffsetBits    *int64  `json:"offset_bits"`
	LengthBits    *int64  `json:"length_bits"`
	SelectedBits  []int   `json:"selected_bits"`
	SelectedBytes []int   `json:"selected_bytes"`
	Notes         *string `json:"notes"`
}

// Exporter writes the per-batch JSON snapshot and SQL script into a
// calendar-keyed directory tree with sequential 3-digit file prefixes.
//
// The next prefix is recomputed from a directory scan on every write,
// serialised through a per-day counter so concurrent batches on the
// same day cannot collide.
type Exporter struct {
	fs   fsutil.FileSystem
	root string
	now  func() time.Time

	mu        sync.Mutex
	lastIndex map[string]int
}

// NewExporter builds an Exporter rooted at dir.
func NewExporter(fsys fsutil.FileSystem, dir string) *Exporter {
	return &Exporter{
		fs:        fsys,
		root:      dir,
		now:       time.Now,
		lastIndex: make(map[string]int),
	}
}

// WriteBatch persists the snapshot and its SQL script and returns the
// two paths. The database rows are already committed by the time this
// runs; a failure here is reported to the caller, never rolled back.
func (e *Exporter) WriteBatch(snap *Snapshot, script string) (jsonPath, sqlPath string, err error) {
	day := snap.ReceivedAt
	dir := filepath.Join(e.root,
		fmt.Sprintf("%04d", day.Year()),
		fmt.Sprintf("%02d", day.Month()),
		fmt.Sprintf("%02d", day.Day()),
	)

	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create export directory: %w", err)
	}

	index, err := e.nextIndex(dir)
	if err != nil {
		return "", "", err
	}

	label := "MULTI"
	if len(snap.Items) == 1 {
		label = SanitizeLabel(snap.Items[0].CanID)
	}

	jsonPath = filepath.Join(dir, fmt.Sprintf("%03d_%s.json", index, label))
	sqlPath = filepath.Join(dir, fmt.Sprintf("%03d_%s_insert.sql", index, label))

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := e.fs.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := e.fs.WriteFile(sqlPath, []byte(script), 0o644); err != nil {
		return jsonPath, "", fmt.Errorf("failed to write SQL script: %w", err)
	}

	return jsonPath, sqlPath, nil
}

// nextIndex picks the next free prefix for a day directory: one past
// the highest existing numeric prefix, never reusing an index already
// handed out for that day in this process.
func (e *Exporter) nextIndex(dir string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan export directory: %w", err)
	}

	max := e.lastIndex[dir]
	for _, entry := range entries {
		name := entry.Name()
		under := strings.IndexByte(name, '_')
		if under <= 0 {
			continue
		}
		n, err := strconv.Atoi(name[:under])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}

	next := max + 1
	e.lastIndex[dir] = next
	return next, nil
}

// SanitizeLabel maps every character outside [0-9A-Za-zx] to '-' so a
// raw CAN identifier is safe in a filename.
func SanitizeLabel(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
