package api

import (
	"github.com/opencandb/cansubmit/internal/db"
	"github.com/opencandb/cansubmit/internal/submit"
)

// pipelineStore adapts *db.DB to the pipeline's store interface.
type pipelineStore struct {
	db *db.DB
}

// NewPipelineStore exposes the catalog to the submission pipeline.
func NewPipelineStore(database *db.DB) submit.Store {
	return pipelineStore{db: database}
}

func (s pipelineStore) ParameterByName(name string) (int64, bool, error) {
	return s.db.ParameterByName(name)
}

func (s pipelineStore) SignalExists(generationID, parameterID int64) (bool, error) {
	return s.db.SignalExists(generationID, parameterID)
}

func (s pipelineStore) InsertSubmission(row submit.Row) (int64, error) {
	sub := &db.Submission{
		GenerationID:  row.GenerationID,
		ParameterID:   row.ParameterID,
		ParameterName: row.ParameterName,
		ByteIndices:   row.ByteIndices,
		BitIndices:    row.BitIndices,
		CanID:         row.CanID,
		Formula:       row.Formula,
		Endian:        row.Endian,
		BusTypeID:     row.BusTypeID,
		CanBusID:      row.CanBusID,
		OffsetBits:    row.OffsetBits,
		LengthBits:    row.LengthBits,
		DimensionID:   row.DimensionID,
		Is29bit:       row.Is29bit,
		Notes:         row.Notes,
	}
	return s.db.InsertSubmission(sub)
}
