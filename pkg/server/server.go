package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/depsane/pkg/analyzer"
	"github.com/platinummonkey/depsane/pkg/observability"
	"github.com/platinummonkey/depsane/pkg/report"
)

// Server serves the latest analysis result
type Server struct {
	log      logrus.FieldLogger
	gatherer prometheus.Gatherer
	started  time.Time

	mu      sync.RWMutex
	latest  *analyzer.Result
	lastErr error
	runs    int
}

// NewServer creates a server. gatherer may be nil, in which case /metrics
// is not registered.
func NewServer(log logrus.FieldLogger, gatherer prometheus.Gatherer) *Server {
	return &Server{
		log:      observability.OrDiscard(log),
		gatherer: gatherer,
		started:  time.Now(),
	}
}

// Update records the outcome of an analysis. A failed run keeps the last
// good result and is reported by /healthz.
func (s *Server) Update(result *analyzer.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.lastErr = err
	if err == nil && result != nil {
		s.latest = result
	}
}

// Latest returns the most recent successful result, nil before the first
func (s *Server) Latest() *analyzer.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// RegisterRoutes registers the API routes on router
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/report", s.getReport).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/graph", s.getGraph).Methods(http.MethodGet)
	if s.gatherer != nil {
		router.Handle("/metrics", observability.MetricsHandler(s.gatherer)).Methods(http.MethodGet)
	}
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, recoveryMiddleware(s.log), loggingMiddleware(s.log))
	s.RegisterRoutes(router)
	return otelhttp.NewHandler(router, "depsane")
}

// HealthStatus is the /healthz response body
type HealthStatus struct {
	Status       string     `json:"status"`
	Uptime       string     `json:"uptime"`
	Runs         int        `json:"runs"`
	LastAnalysis *time.Time `json:"lastAnalysis,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	Findings     int        `json:"findings"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := HealthStatus{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Runs:   s.runs,
	}
	if s.latest != nil {
		finished := s.latest.Finished
		status.LastAnalysis = &finished
		status.Findings = s.latest.Verdict.Count()
	}
	if s.lastErr != nil {
		status.Status = "degraded"
		status.LastError = s.lastErr.Error()
	}
	s.mu.RUnlock()

	_ = writeJSON(w, http.StatusOK, status)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	latest := s.Latest()
	if latest == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "no analysis has completed yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := report.Write(w, report.FormatJSON, []*analyzer.Result{latest}); err != nil {
		s.log.WithError(err).Warn("Failed to write report")
	}
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	latest := s.Latest()
	if latest == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "no analysis has completed yet")
		return
	}
	_ = writeJSON(w, http.StatusOK, BuildGraph(latest))
}
