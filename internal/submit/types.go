// Package submit implements the signal-submission pipeline: request
// normalisation, validation, catalog resolution, row persistence and
// the JSON/SQL artifact export.
package submit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// OptInt is an optional integer that tolerates sloppy clients. The form
// posts select values as strings, numbers or nulls interchangeably;
// anything unparsable reads as absent rather than failing the request.
type OptInt struct {
	Value int64
	Valid bool
}

// UnmarshalJSON never returns an error: a present-but-unparsable value
// is treated as absent by policy.
func (o *OptInt) UnmarshalJSON(data []byte) error {
	o.Value, o.Valid = 0, false

	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// Accept integral floats ("3.0") the way a lenient form backend would
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		o.Value, o.Valid = v, true
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		o.Value, o.Valid = int64(f), true
	}
	return nil
}

// MarshalJSON emits the value or null.
func (o OptInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(o.Value, 10)), nil
}

// Ptr returns the value as a nullable pointer.
func (o OptInt) Ptr() *int64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// OptIntOf builds a present OptInt; handy in tests and normalisation.
func OptIntOf(v int64) OptInt {
	return OptInt{Value: v, Valid: true}
}

// Item is one candidate signal-encoding record as posted by the form.
type Item struct {
	ParameterID   OptInt  `json:"parameter_id"`
	ParameterName string  `json:"parameter_name,omitempty"`
	CanID         string  `json:"can_id"`
	Formula       string  `json:"formula,omitempty"`
	Endian        string  `json:"endian"`
	Is29bit       bool    `json:"is29bit"`
	BusTypeID     OptInt  `json:"bus_type_id"`
	CanBusID      OptInt  `json:"can_bus_id"`
	DimensionID   OptInt  `json:"dimension_id"`
	OffsetBits    OptInt  `json:"offset_bits"`
	LengthBits    OptInt  `json:"length_bits"`
	Notes         string  `json:"notes,omitempty"`
	SelectedBits  IntSet  `json:"selected_bits"`
	SelectedBytes IntSet  `json:"selected_bytes"`
}

// IntSet is an ordered set of non-negative integers. Duplicates and
// negative or non-numeric entries are dropped on decode, preserving the
// permissive behaviour clients depend on.
type IntSet []int

func (s *IntSet) UnmarshalJSON(data []byte) error {
	*s = nil

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not a list at all: treat as empty, same as other optional fields
		return nil
	}

	seen := make(map[int]bool)
	var out []int
	for _, elem := range raw {
		// Elements are coerced one by one so a single bad entry drops
		// alone instead of taking the whole list with it.
		text := strings.TrimSpace(string(elem))
		if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
		v, err := strconv.Atoi(text)
		if err != nil || v < 0 || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Ints(out)
	*s = out
	return nil
}

// empty reports whether the item carries no content at all; used to
// tell an absent legacy single-item apart from a real one.
func (it Item) empty() bool {
	return it.CanID == "" && it.ParameterName == "" && !it.ParameterID.Valid &&
		it.Endian == "" && len(it.SelectedBits) == 0 && len(it.SelectedBytes) == 0
}

// Descriptor is the free-text make/model/generation label proposed for
// a vehicle not yet in the catalog.
type Descriptor struct {
	Make       string `json:"make"`
	Model      string `json:"model"`
	Generation string `json:"generation"`
}

// Present reports whether the submitter expressed any custom-vehicle
// intent.
func (d Descriptor) Present() bool {
	return d.Make != "" || d.Model != "" || d.Generation != ""
}

// Batch is one normalised submission request.
type Batch struct {
	GenerationID OptInt
	Vehicle      Descriptor
	Items        []Item
}

// request is the raw wire shape: batch fields plus the legacy
// single-item fields inline at the top level.
type request struct {
	Item

	VehicleID        OptInt  `json:"vehicle_id"`
	Make             string  `json:"make"`
	MakeCustom       string  `json:"make_custom"`
	Model            string  `json:"model"`
	ModelCustom      string  `json:"model_custom"`
	GenerationLabel  string  `json:"generation_label"`
	GenerationCustom string  `json:"generation_custom"`
	Items            []Item  `json:"items"`
}

// ParseRequest decodes a submission body and normalises the legacy
// single-item shape into a one-element batch.
func ParseRequest(data []byte) (*Batch, error) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	batch := &Batch{
		GenerationID: req.VehicleID,
		Vehicle: Descriptor{
			Make:       firstNonBlank(req.MakeCustom, req.Make),
			Model:      firstNonBlank(req.ModelCustom, req.Model),
			Generation: firstNonBlank(req.GenerationCustom, req.GenerationLabel),
		},
		Items: req.Items,
	}

	if len(batch.Items) == 0 && !req.Item.empty() {
		batch.Items = []Item{req.Item}
	}

	for i := range batch.Items {
		batch.Items[i].ParameterName = strings.TrimSpace(batch.Items[i].ParameterName)
		batch.Items[i].CanID = strings.TrimSpace(batch.Items[i].CanID)
		batch.Items[i].Notes = strings.TrimSpace(batch.Items[i].Notes)
	}

	return batch, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
