package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/opencandb/cansubmit/internal/httputil"
	"github.com/opencandb/cansubmit/internal/submit"
)

// maxSubmissionBody caps a POST body; the form never legitimately
// produces more than a few kilobytes.
const maxSubmissionBody = 1 << 20

const defaultParameterLimit = 50

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"status":       "ok",
		"db_available": s.dbReady(),
	})
}

// dbReady reports whether the catalog can serve queries right now. The
// file check matters even after open: sqlite creates the file lazily,
// and a catalog that was never provisioned must read as absent.
func (s *Server) dbReady() bool {
	return s.db != nil && s.cfg.DBAvailable()
}

// requireDB guards every data route: no catalog file means 503, not an
// empty-but-working service.
func (s *Server) requireDB(w http.ResponseWriter) bool {
	if !s.dbReady() {
		httputil.ServiceUnavailable(w, "catalog database is not available")
		return false
	}
	return true
}

func (s *Server) listMakes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	makes, err := s.db.Makes()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list makes: %v", err))
		return
	}
	httputil.WriteJSONOK(w, makes)
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	make := r.URL.Query().Get("make")
	if make == "" {
		httputil.BadRequest(w, "missing 'make' parameter")
		return
	}

	models, err := s.db.Models(make)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list models: %v", err))
		return
	}
	httputil.WriteJSONOK(w, models)
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	q := r.URL.Query()
	vehicles, err := s.db.Vehicles(q.Get("make"), q.Get("model"))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list vehicles: %v", err))
		return
	}
	httputil.WriteJSONOK(w, vehicles)
}

func (s *Server) listGenerations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	q := r.URL.Query()
	make, model := q.Get("make"), q.Get("model")
	if make == "" || model == "" {
		httputil.BadRequest(w, "missing 'make' or 'model' parameter")
		return
	}

	gens, err := s.db.Generations(make, model)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list generations: %v", err))
		return
	}
	httputil.WriteJSONOK(w, gens)
}

func (s *Server) listParameters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	q := r.URL.Query()
	limit := defaultParameterLimit
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	params, err := s.db.Parameters(q.Get("q"), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list parameters: %v", err))
		return
	}
	httputil.WriteJSONOK(w, params)
}

func (s *Server) listBusTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	types, err := s.db.BusTypes()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list bus types: %v", err))
		return
	}
	httputil.WriteJSONOK(w, types)
}

func (s *Server) listCanBuses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	buses, err := s.db.CanBuses()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list can buses: %v", err))
		return
	}
	httputil.WriteJSONOK(w, buses)
}

func (s *Server) listDimensions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	dims, err := s.db.Dimensions()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list dimensions: %v", err))
		return
	}
	httputil.WriteJSONOK(w, dims)
}

func (s *Server) listGenerationParameters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	raw := r.URL.Query().Get("generation_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		httputil.BadRequest(w, "invalid 'generation_id' parameter")
		return
	}

	params, err := s.db.GenerationParameters(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list generation parameters: %v", err))
		return
	}
	httputil.WriteJSONOK(w, params)
}

func (s *Server) createSubmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmissionBody))
	if err != nil {
		httputil.BadRequest(w, "failed to read request body")
		return
	}

	batch, err := submit.ParseRequest(body)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	// An explicit generation id must actually exist; a dangling
	// reference would silently orphan every row in the batch.
	if id := batch.GenerationID.Ptr(); id != nil {
		exists, err := s.db.GenerationExists(*id)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to check generation: %v", err))
			return
		}
		if !exists {
			httputil.WriteJSONErrorDetail(w, http.StatusBadRequest,
				submit.KindMissingGeneration.String(),
				fmt.Sprintf("generation %d is not in the catalog", *id))
			return
		}
	}

	result, err := s.pipeline.Process(batch)
	if err != nil {
		var subErr *submit.Error
		if errors.As(err, &subErr) {
			status := http.StatusBadRequest
			if subErr.Kind == submit.KindDuplicateSignal {
				status = http.StatusConflict
			}
			httputil.WriteJSONErrorDetail(w, status, subErr.Kind.String(), subErr.Detail)
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to process submission: %v", err))
		return
	}

	resp := map[string]any{
		"status":     "ok",
		"saved":      result.Saved,
		"ids":        result.IDs,
		"file_saved": result.FileSaved,
	}
	if result.FileError != "" {
		resp["file_error"] = result.FileError
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}
