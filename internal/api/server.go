// Package api serves the submission form's JSON surface: catalog
// lookups for the cascading selects and the POST endpoint that runs the
// submission pipeline.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/opencandb/cansubmit/internal/config"
	"github.com/opencandb/cansubmit/internal/db"
	"github.com/opencandb/cansubmit/internal/submit"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	cfg      config.Config
	db       *db.DB
	pipeline *submit.Pipeline
}

// NewServer wires the handlers over an open catalog and a submission
// pipeline. db and pipeline may be nil when the catalog file is absent;
// every data route then answers 503.
func NewServer(cfg config.Config, database *db.DB, pipeline *submit.Pipeline) *Server {
	return &Server{
		cfg:      cfg,
		db:       database,
		pipeline: pipeline,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// CORSMiddleware answers preflights and marks every response
// cross-origin readable. The form is often served from a file:// page
// or another host during catalog curation sessions.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.health)
	mux.HandleFunc("/api/makes", s.listMakes)
	mux.HandleFunc("/api/models", s.listModels)
	mux.HandleFunc("/api/vehicles", s.listVehicles)
	mux.HandleFunc("/api/generations", s.listGenerations)
	mux.HandleFunc("/api/parameters", s.listParameters)
	mux.HandleFunc("/api/bus-types", s.listBusTypes)
	mux.HandleFunc("/api/can-buses", s.listCanBuses)
	mux.HandleFunc("/api/dimensions", s.listDimensions)
	mux.HandleFunc("/api/generation-parameters", s.listGenerationParameters)
	mux.HandleFunc("/api/submissions", s.createSubmission)
	return mux
}
