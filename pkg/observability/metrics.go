package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis phases used as metric labels
const (
	PhaseCrawl = "crawl"
	PhaseScan  = "scan"
)

// Metrics holds the analyzer's Prometheus metrics. All recording methods
// are safe on a nil receiver.
type Metrics struct {
	FilesParsedTotal          *prometheus.CounterVec
	ParseErrorsTotal          *prometheus.CounterVec
	ReferencesTotal           *prometheus.CounterVec
	UnresolvedReferencesTotal prometheus.Counter
	ToolPackagesTotal         *prometheus.CounterVec
	Findings                  *prometheus.GaugeVec
	AnalysisDuration          *prometheus.HistogramVec
	AnalysesTotal             *prometheus.CounterVec

	otel *OTelMetrics
}

// NewMetrics creates and registers all metrics with registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesParsedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depsane_files_parsed_total",
				Help: "Total number of source files parsed",
			},
			[]string{"phase"},
		),
		ParseErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depsane_parse_errors_total",
				Help: "Total number of files that could not be read or parsed cleanly",
			},
			[]string{"phase", "error_type"},
		),
		ReferencesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depsane_references_total",
				Help: "Total number of module references extracted",
			},
			[]string{"kind", "resolution"},
		),
		UnresolvedReferencesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depsane_unresolved_references_total",
				Help: "Total number of local references that did not resolve to a file",
			},
		),
		ToolPackagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depsane_tool_packages_total",
				Help: "Total number of development packages inferred from tooling",
			},
			[]string{"source"},
		),
		Findings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "depsane_findings",
				Help: "Number of findings of the last analysis per package root",
			},
			[]string{"root", "category"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "depsane_analysis_duration_seconds",
				Help:    "Duration of a full package analysis",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depsane_analyses_total",
				Help: "Total number of analyses run",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.FilesParsedTotal,
		m.ParseErrorsTotal,
		m.ReferencesTotal,
		m.UnresolvedReferencesTotal,
		m.ToolPackagesTotal,
		m.Findings,
		m.AnalysisDuration,
		m.AnalysesTotal,
	)

	return m
}

// WithOTel mirrors run-level measurements to OpenTelemetry instruments
func (m *Metrics) WithOTel(o *OTelMetrics) *Metrics {
	if m != nil {
		m.otel = o
	}
	return m
}

// FileParsed counts a file handed to the extractor
func (m *Metrics) FileParsed(phase string) {
	if m == nil {
		return
	}
	m.FilesParsedTotal.WithLabelValues(phase).Inc()
}

// ParseError counts a file that was unreadable or had syntax errors
func (m *Metrics) ParseError(phase, errorType string) {
	if m == nil {
		return
	}
	m.ParseErrorsTotal.WithLabelValues(phase, errorType).Inc()
}

// Reference counts an extracted reference by syntax and resolution kind
func (m *Metrics) Reference(kind, resolution string) {
	if m == nil {
		return
	}
	m.ReferencesTotal.WithLabelValues(kind, resolution).Inc()
}

// UnresolvedReference counts a dangling local reference
func (m *Metrics) UnresolvedReference() {
	if m == nil {
		return
	}
	m.UnresolvedReferencesTotal.Inc()
}

// ToolPackage counts a package inferred from tooling
func (m *Metrics) ToolPackage(source string) {
	if m == nil {
		return
	}
	m.ToolPackagesTotal.WithLabelValues(source).Inc()
}

// SetFindings records the finding count of one category for a root
func (m *Metrics) SetFindings(root, category string, n int) {
	if m == nil {
		return
	}
	m.Findings.WithLabelValues(root, category).Set(float64(n))
}

// ObserveAnalysis records a finished analysis
func (m *Metrics) ObserveAnalysis(status string, d time.Duration, findings int) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(status).Inc()
	m.AnalysisDuration.WithLabelValues(status).Observe(d.Seconds())
	m.otel.recordAnalysis(status, d, findings)
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path in the text format read by the
// node-exporter textfile collector
func WriteTextfile(gatherer prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
