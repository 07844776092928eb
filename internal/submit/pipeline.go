package submit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opencandb/cansubmit/internal/canid"
)

// Result reports what a processed batch produced. FileSaved is false
// when the database rows committed but the artifact export failed; the
// rows are kept either way.
type Result struct {
	IDs       []int64 `json:"ids"`
	Saved     int     `json:"saved"`
	FileSaved bool    `json:"file_saved"`
	FileError string  `json:"file_error,omitempty"`
	JSONPath  string  `json:"json_path,omitempty"`
	SQLPath   string  `json:"sql_path,omitempty"`
}

// Pipeline runs a submission batch end to end. Processing is two-phase:
// every item is validated, resolved and duplicate-checked before the
// first row is written, so a rejected item leaves nothing behind.
type Pipeline struct {
	store    Store
	resolver *Resolver
	exporter *Exporter

	now   func() time.Time
	newID func() string
}

// NewPipeline wires a Pipeline over the given store and exporter.
func NewPipeline(store Store, exporter *Exporter) *Pipeline {
	return &Pipeline{
		store:    store,
		resolver: NewResolver(store),
		exporter: exporter,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// resolvedItem carries one item through the phases with its parameter
// identity and parsed identifier attached.
type resolvedItem struct {
	item  Item
	param ResolvedParameter
	pid   uint32
}

// Process validates, persists and exports one batch. Client-input
// failures come back as *Error; anything else is an internal failure.
func (p *Pipeline) Process(batch *Batch) (*Result, error) {
	generationID := batch.GenerationID.Ptr()
	if generationID == nil && !batch.Vehicle.Present() {
		return nil, errMissingGeneration("a vehicle generation or a custom make/model/generation is required")
	}
	if len(batch.Items) == 0 {
		return nil, errMissingParameter("at least one signal item is required")
	}

	// Phase 1: validate and resolve everything before touching the
	// database, so a bad item cannot leave a partial batch behind.
	resolved := make([]resolvedItem, 0, len(batch.Items))
	for i, item := range batch.Items {
		position := i + 1
		if err := ValidateItem(item, position); err != nil {
			return nil, err
		}
		pid, err := canid.Parse(item.CanID)
		if err != nil {
			return nil, errMalformedIdentifier(fmt.Sprintf("item %d: %v", position, err))
		}

		param, err := p.resolver.ResolveParameter(item)
		if err != nil {
			return nil, err
		}
		if err := p.resolver.CheckDuplicate(generationID, param, position); err != nil {
			return nil, err
		}

		resolved = append(resolved, resolvedItem{item: item, param: param, pid: pid})
	}

	// Phase 2: persist the rows.
	receivedAt := p.now().UTC()
	snap := &Snapshot{
		SnapshotID:   p.newID(),
		ReceivedAt:   receivedAt,
		GenerationID: generationID,
	}
	if generationID == nil {
		vehicle := batch.Vehicle
		snap.Vehicle = &vehicle
	}

	result := &Result{IDs: make([]int64, 0, len(resolved))}
	for _, r := range resolved {
		row := rowFromItem(generationID, r)
		id, err := p.store.InsertSubmission(row)
		if err != nil {
			return nil, fmt.Errorf("failed to persist submission: %w", err)
		}
		result.IDs = append(result.IDs, id)
		result.Saved++
		snap.Items = append(snap.Items, snapshotItem(id, r))
	}

	// Phase 3: best-effort artifact export. The rows are committed; an
	// export failure is reported, never rolled back.
	script := BuildScript(snap)
	jsonPath, sqlPath, err := p.exporter.WriteBatch(snap, script)
	if err != nil {
		result.FileError = err.Error()
		return result, nil
	}
	result.FileSaved = true
	result.JSONPath = jsonPath
	result.SQLPath = sqlPath
	return result, nil
}

func rowFromItem(generationID *int64, r resolvedItem) Row {
	return Row{
		GenerationID:  generationID,
		ParameterID:   r.param.ID,
		ParameterName: unresolvedName(r.param),
		ByteIndices:   r.item.SelectedBytes,
		BitIndices:    r.item.SelectedBits,
		CanID:         r.item.CanID,
		Formula:       blankToNil(r.item.Formula),
		Endian:        NormalizeEndian(r.item.Endian),
		BusTypeID:     r.item.BusTypeID.Ptr(),
		CanBusID:      r.item.CanBusID.Ptr(),
		OffsetBits:    r.item.OffsetBits.Ptr(),
		LengthBits:    r.item.LengthBits.Ptr(),
		DimensionID:   r.item.DimensionID.Ptr(),
		Is29bit:       r.item.Is29bit,
		Notes:         blankToNil(r.item.Notes),
	}
}

func snapshotItem(id int64, r resolvedItem) SnapshotItem {
	mask := canid.PayloadMask(r.item.SelectedBits, r.item.SelectedBytes,
		r.item.OffsetBits.Ptr(), r.item.LengthBits.Ptr())

	return SnapshotItem{
		SubmissionID:  id,
		ParameterID:   r.param.ID,
		ParameterName: unresolvedName(r.param),
		CanID:         r.item.CanID,
		PID:           fmt.Sprintf("0x%08X", r.pid),
		PIDMask:       fmt.Sprintf("0x%08X", canid.Mask(r.item.Is29bit)),
		PayloadMask:   fmt.Sprintf("0x%X", mask[:]),
		Endian:        NormalizeEndian(r.item.Endian),
		Is29bit:       r.item.Is29bit,
		Formula:       blankToNil(r.item.Formula),
		BusTypeID:     r.item.BusTypeID.Ptr(),
		CanBusID:      r.item.CanBusID.Ptr(),
		DimensionID:   r.item.DimensionID.Ptr(),
		OffsetBits:    r.item.OffsetBits.Ptr(),
		LengthBits:    r.item.LengthBits.Ptr(),
		SelectedBits:  r.item.SelectedBits,
		SelectedBytes: r.item.SelectedBytes,
		Notes:         blankToNil(r.item.Notes),
	}
}

// unresolvedName returns the proposed name only when no catalog id was
// found, matching the row's either-or parameter identity.
func unresolvedName(param ResolvedParameter) *string {
	if param.ID != nil || param.Name == "" {
		return nil
	}
	name := param.Name
	return &name
}

func blankToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
