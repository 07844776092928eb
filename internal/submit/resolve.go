package submit

import (
	"fmt"
)

// Store is the slice of the catalog the pipeline needs. *db.DB
// satisfies it through a thin adapter at wiring time; tests substitute
// fakes.
type Store interface {
	// ParameterByName looks a parameter up by exact (case-sensitive) name.
	ParameterByName(name string) (id int64, ok bool, err error)

	// SignalExists reports whether a signal row already covers the
	// (generation, parameter) pair.
	SignalExists(generationID, parameterID int64) (bool, error)

	// InsertSubmission persists one row and returns its id.
	InsertSubmission(row Row) (int64, error)
}

// Row is the persistence shape of one accepted item.
type Row struct {
	GenerationID  *int64
	ParameterID   *int64
	ParameterName *string
	ByteIndices   []int
	BitIndices    []int
	CanID         string
	Formula       *string
	Endian        string
	BusTypeID     *int64
	CanBusID      *int64
	OffsetBits    *int64
	LengthBits    *int64
	DimensionID   *int64
	Is29bit       bool
	Notes         *string
}

// ResolvedParameter is a parameter identity after catalog
// reconciliation: either a catalog id, or an unmatched proposed name
// whose creation is deferred to the generated SQL script. Never both.
type ResolvedParameter struct {
	ID   *int64
	Name string
}

// Resolver reconciles items against the existing catalog.
type Resolver struct {
	store Store
}

// NewResolver builds a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveParameter maps an item's parameter reference to a stable
// identity. An explicit id is used unchanged. A proposed name that
// matches the catalog collapses to the catalog id so the persisted row
// is never ambiguous; an unmatched name stays unresolved.
func (r *Resolver) ResolveParameter(item Item) (ResolvedParameter, error) {
	if item.ParameterID.Valid {
		return ResolvedParameter{ID: item.ParameterID.Ptr()}, nil
	}

	id, ok, err := r.store.ParameterByName(item.ParameterName)
	if err != nil {
		return ResolvedParameter{}, fmt.Errorf("failed to resolve parameter %q: %w", item.ParameterName, err)
	}
	if ok {
		return ResolvedParameter{ID: &id}, nil
	}
	return ResolvedParameter{Name: item.ParameterName}, nil
}

// CheckDuplicate rejects an item whose (generation, parameter) pair is
// already catalogued. Items without both ids pass: the custom-vehicle
// flow and deferred parameters have nothing to collide with yet.
func (r *Resolver) CheckDuplicate(generationID *int64, param ResolvedParameter, position int) error {
	if generationID == nil || param.ID == nil {
		return nil
	}

	exists, err := r.store.SignalExists(*generationID, *param.ID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate signal: %w", err)
	}
	if exists {
		return errDuplicateSignal(fmt.Sprintf(
			"item %d: a signal for generation %d and parameter %d already exists",
			position, *generationID, *param.ID))
	}
	return nil
}
