package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/platinummonkey/depsane"

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	analyses metric.Int64Counter
	duration metric.Float64Histogram
	findings metric.Int64Histogram
}

// NewOTelMetrics creates instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(instrumentationName)

	m := &OTelMetrics{}
	var err error

	m.analyses, err = meter.Int64Counter(
		"depsane.analyses",
		metric.WithDescription("Number of package analyses"),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyses counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"depsane.analysis.duration",
		metric.WithDescription("Duration of a package analysis"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis duration histogram: %w", err)
	}

	m.findings, err = meter.Int64Histogram(
		"depsane.analysis.findings",
		metric.WithDescription("Findings reported by a package analysis"),
		metric.WithUnit("{finding}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create findings histogram: %w", err)
	}

	return m, nil
}

func (m *OTelMetrics) recordAnalysis(status string, d time.Duration, findings int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.analyses.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
	m.findings.Record(ctx, int64(findings), attrs)
}
