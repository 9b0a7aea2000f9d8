// Package api serves the pipeline's HTTP interface: live engine status,
// persisted run data, evaluation metrics, and the charts dashboard.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/roadtrust/internal/analysis"
	"github.com/banshee-data/roadtrust/internal/httputil"
	"github.com/banshee-data/roadtrust/internal/monitoring"
	"github.com/banshee-data/roadtrust/internal/storage"
	"github.com/banshee-data/roadtrust/internal/trustnet"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	engine *trustnet.Engine
	store  *storage.Store

	// fakeThreshold drives the metrics endpoint's flagged/not-flagged split.
	fakeThreshold float64
}

// NewServer creates a server over a running engine. store may be nil when the
// daemon runs without persistence; the data endpoints then return 503.
func NewServer(engine *trustnet.Engine, store *storage.Store, fakeThreshold float64) *Server {
	return &Server{
		engine:        engine,
		store:         store,
		fakeThreshold: fakeThreshold,
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
	case statusCode >= 400:
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
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/reports", s.listReports)
	mux.HandleFunc("/api/stats", s.listStats)
	mux.HandleFunc("/api/dispatches", s.listDispatches)
	mux.HandleFunc("/api/reputation", s.showReputation)
	mux.HandleFunc("/api/metrics", s.showMetrics)
	mux.HandleFunc("/charts", s.showDashboard)
	return mux
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "persistence not configured")
		return false
	}
	return true
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.engine.Status())
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 10000 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	reports, err := s.store.Reports(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if reports == nil {
		reports = []storage.ReportRow{}
	}
	httputil.WriteJSONOK(w, reports)
}

func (s *Server) listStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}

	rows, err := s.store.StatsRows()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if rows == nil {
		rows = []trustnet.StatsRow{}
	}
	httputil.WriteJSONOK(w, rows)
}

func (s *Server) listDispatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}

	dispatches, err := s.store.Dispatches()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if dispatches == nil {
		dispatches = []storage.DispatchRow{}
	}
	httputil.WriteJSONOK(w, dispatches)
}

func (s *Server) showReputation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.engine.Reputation().Snapshot())
}

func (s *Server) showMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}

	reports, err := s.store.Reports(10000)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, analysis.Compute(reports, s.fakeThreshold))
}

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}

	rows, err := s.store.StatsRows()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	reports, err := s.store.Reports(10000)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	reputation := s.engine.Reputation().Snapshot()
	if err := analysis.RenderDashboard(w, s.store.RunID(), rows, reports, reputation); err != nil {
		monitoring.Logf("api: failed to render dashboard: %v", err)
	}
}
