package submit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/opencandb/cansubmit/internal/fsutil"
)

func newTestPipeline(store *fakeStore, memFS *fsutil.MemoryFileSystem) *Pipeline {
	p := NewPipeline(store, NewExporter(memFS, "export"))
	p.now = func() time.Time { return fixedTime() }
	p.newID = func() string { return "test-snapshot" }
	return p
}

func TestProcessSingleItem(t *testing.T) {
	store := newFakeStore()
	memFS := fsutil.NewMemoryFileSystem()
	p := newTestPipeline(store, memFS)

	batch := &Batch{
		GenerationID: OptIntOf(15),
		Items: []Item{{
			ParameterID:  OptIntOf(9),
			CanID:        "0x7E8",
			Endian:       "Little",
			SelectedBits: IntSet{3, 10},
			Formula:      "x*0.75-48",
		}},
	}

	res, err := p.Process(batch)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if res.Saved != 1 || len(res.IDs) != 1 {
		t.Fatalf("result = %+v, want one saved row", res)
	}
	if !res.FileSaved {
		t.Errorf("file_saved = false, want artifacts written: %s", res.FileError)
	}

	if len(store.rows) != 1 {
		t.Fatalf("rows persisted = %d, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.GenerationID == nil || *row.GenerationID != 15 {
		t.Errorf("row generation = %v, want 15", row.GenerationID)
	}
	if row.Endian != "little" {
		t.Errorf("row endian = %q, want normalised little", row.Endian)
	}
	if diff := cmp.Diff([]int{3, 10}, row.BitIndices); diff != "" {
		t.Errorf("bit indices (-want +got):\n%s", diff)
	}

	// Bits 3 and 10 cover payload bytes 0 and 1.
	script, err := memFS.ReadFile(res.SQLPath)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if !strings.Contains(string(script), "X'FFFF000000000000'") {
		t.Errorf("script payload mask wrong:\n%s", script)
	}
	if !strings.Contains(string(script), "X'000007E8'") || !strings.Contains(string(script), "X'000007FF'") {
		t.Errorf("script PID encoding wrong:\n%s", script)
	}
}

func TestProcessMissingGeneration(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store, fsutil.NewMemoryFileSystem())

	batch := &Batch{Items: []Item{{ParameterID: OptIntOf(9), CanID: "0x7E8", Endian: "little"}}}

	_, err := p.Process(batch)
	var subErr *Error
	if !errors.As(err, &subErr) || subErr.Kind != KindMissingGeneration {
		t.Fatalf("err = %v, want missing_generation", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("rows persisted = %d, want none", len(store.rows))
	}
}

func TestProcessNoItems(t *testing.T) {
	p := newTestPipeline(newFakeStore(), fsutil.NewMemoryFileSystem())

	_, err := p.Process(&Batch{GenerationID: OptIntOf(15)})
	var subErr *Error
	if !errors.As(err, &subErr) || subErr.Kind != KindMissingParameter {
		t.Fatalf("err = %v, want missing_parameter", err)
	}
}

func TestProcessDuplicateRejectsWholeBatch(t *testing.T) {
	store := newFakeStore()
	store.signals[[2]int64{15, 9}] = true
	p := newTestPipeline(store, fsutil.NewMemoryFileSystem())

	batch := &Batch{
		GenerationID: OptIntOf(15),
		Items: []Item{
			{ParameterID: OptIntOf(4), CanID: "0x100", Endian: "big"},
			{ParameterID: OptIntOf(9), CanID: "0x7E8", Endian: "little"},
		},
	}

	_, err := p.Process(batch)
	var subErr *Error
	if !errors.As(err, &subErr) || subErr.Kind != KindDuplicateSignal {
		t.Fatalf("err = %v, want duplicate_signal", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("rows persisted = %d, want none before the duplicate check clears", len(store.rows))
	}
}

func TestProcessCustomVehicle(t *testing.T) {
	store := newFakeStore()
	memFS := fsutil.NewMemoryFileSystem()
	p := newTestPipeline(store, memFS)

	batch := &Batch{
		Vehicle: Descriptor{Make: "Lada", Model: "Vesta", Generation: "NG 2023"},
		Items:   []Item{{ParameterName: "Speed", CanID: "0x100", Endian: "big", Is29bit: true}},
	}

	res, err := p.Process(batch)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.rows[0].GenerationID != nil {
		t.Errorf("custom vehicle row must have no generation id: %+v", store.rows[0])
	}

	script, err := memFS.ReadFile(res.SQLPath)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	for _, want := range []string{
		"INSERT INTO manufacturers",
		"X'1FFFFFFF'", // 29-bit mask
	} {
		if !strings.Contains(string(script), want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}

func TestProcessNameMatchingCatalogCollapsesToID(t *testing.T) {
	store := newFakeStore()
	store.parameters["Speed"] = 17
	p := newTestPipeline(store, fsutil.NewMemoryFileSystem())

	batch := &Batch{
		GenerationID: OptIntOf(15),
		Items:        []Item{{ParameterName: "Speed", CanID: "0x100", Endian: "big"}},
	}

	if _, err := p.Process(batch); err != nil {
		t.Fatalf("Process: %v", err)
	}
	row := store.rows[0]
	if row.ParameterID == nil || *row.ParameterID != 17 || row.ParameterName != nil {
		t.Errorf("row = %+v, want parameter collapsed to catalog id 17", row)
	}
}

func TestProcessArtifactFailureKeepsRows(t *testing.T) {
	store := newFakeStore()
	memFS := fsutil.NewMemoryFileSystem()
	memFS.FailWrites = errors.New("disk full")
	p := newTestPipeline(store, memFS)

	batch := &Batch{
		GenerationID: OptIntOf(15),
		Items:        []Item{{ParameterID: OptIntOf(9), CanID: "0x7E8", Endian: "little"}},
	}

	res, err := p.Process(batch)
	if err != nil {
		t.Fatalf("Process must not fail on artifact errors: %v", err)
	}
	if res.FileSaved || res.FileError == "" {
		t.Errorf("result = %+v, want file_saved false with an error detail", res)
	}
	if res.Saved != 1 || len(store.rows) != 1 {
		t.Errorf("rows must be kept despite the artifact failure: %+v", res)
	}
}

func TestProcessInsertFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("constraint violation")
	p := newTestPipeline(store, fsutil.NewMemoryFileSystem())

	batch := &Batch{
		GenerationID: OptIntOf(15),
		Items:        []Item{{ParameterID: OptIntOf(9), CanID: "0x7E8", Endian: "little"}},
	}

	_, err := p.Process(batch)
	if err == nil {
		t.Fatal("expected the insert failure to propagate")
	}
	var subErr *Error
	if errors.As(err, &subErr) {
		t.Errorf("store failures must not look like client errors: %v", err)
	}
}
