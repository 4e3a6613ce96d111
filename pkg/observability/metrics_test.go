package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Recording(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.FileParsed(PhaseCrawl)
	m.FileParsed(PhaseCrawl)
	m.FileParsed(PhaseScan)
	m.ParseError(PhaseScan, "syntax")
	m.Reference("require", "package")
	m.UnresolvedReference()
	m.ToolPackage("config")
	m.SetFindings("/p", "unused-dependencies", 3)
	m.ObserveAnalysis("ok", 150*time.Millisecond, 3)

	if got := testutil.ToFloat64(m.FilesParsedTotal.WithLabelValues(PhaseCrawl)); got != 2 {
		t.Errorf("crawl files parsed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ParseErrorsTotal.WithLabelValues(PhaseScan, "syntax")); got != 1 {
		t.Errorf("parse errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UnresolvedReferencesTotal); got != 1 {
		t.Errorf("unresolved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Findings.WithLabelValues("/p", "unused-dependencies")); got != 3 {
		t.Errorf("findings = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("analyses = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.AnalysisDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.FileParsed(PhaseCrawl)
	m.ParseError(PhaseCrawl, "read")
	m.Reference("import", "local")
	m.UnresolvedReference()
	m.ToolPackage("script")
	m.SetFindings("/p", "x", 1)
	m.ObserveAnalysis("error", time.Second, 0)
	if m.WithOTel(nil) != nil {
		t.Error("WithOTel on nil metrics should stay nil")
	}
}

func TestMetrics_WithOTel(t *testing.T) {
	o, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics: %v", err)
	}
	m := NewMetrics(prometheus.NewRegistry()).WithOTel(o)
	// Global meter provider is a no-op; recording must not panic.
	m.ObserveAnalysis("ok", time.Millisecond, 2)
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.FileParsed(PhaseCrawl)

	srv := httptest.NewServer(MetricsHandler(registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `depsane_files_parsed_total{phase="crawl"} 1`) {
		t.Errorf("exposition missing counter:\n%s", body)
	}
}

func TestWriteTextfile(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry).UnresolvedReference()

	path := filepath.Join(t.TempDir(), "depsane.prom")
	if err := WriteTextfile(registry, path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "depsane_unresolved_references_total 1") {
		t.Errorf("textfile missing counter:\n%s", data)
	}

	if err := WriteTextfile(registry, filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("expected error for missing directory")
	}
}
