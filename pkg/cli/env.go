package cli

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/depsane/pkg/analyzer"
	"github.com/platinummonkey/depsane/pkg/config"
	"github.com/platinummonkey/depsane/pkg/jsparse"
	"github.com/platinummonkey/depsane/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

// runtimeEnv is the process-wide logging, metrics and tracing setup
type runtimeEnv struct {
	log         *logrus.Logger
	registry    *prometheus.Registry
	metrics     *observability.Metrics
	providers   *observability.OTelProviders
	metricsFile string
}

func setupEnv(ctx context.Context, cfg *config.Config, stderr io.Writer) (*runtimeEnv, error) {
	log, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	env := &runtimeEnv{
		log:         log,
		registry:    registry,
		metrics:     observability.NewMetrics(registry),
		metricsFile: cfg.Metrics.File,
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Endpoint:       cfg.OTel.Endpoint,
		ServiceName:    "depsane",
		ServiceVersion: Version,
		Insecure:       cfg.OTel.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	if providers != nil {
		env.providers = providers
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			log.WithError(err).Warn("Failed to create OpenTelemetry instruments")
		} else {
			env.metrics.WithOTel(otelMetrics)
		}
	}

	return env, nil
}

func (e *runtimeEnv) analyzerOptions(cfg *config.Config, root string, extractor jsparse.Source) analyzer.Options {
	return analyzer.Options{
		IgnoreDirs: cfg.ResolveIgnoreDirs(root),
		Ignores:    cfg.Ignores,
		Extensions: cfg.Extensions,
		Extractor:  extractor,
		Logger:     e.log,
		Metrics:    e.metrics,
	}
}

// flushMetrics writes the metrics file when one is configured
func (e *runtimeEnv) flushMetrics() {
	if e.metricsFile == "" {
		return
	}
	if err := observability.WriteTextfile(e.registry, e.metricsFile); err != nil {
		e.log.WithError(err).WithField("file", e.metricsFile).Warn("Failed to write metrics file")
	}
}

func (e *runtimeEnv) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := observability.ShutdownOTel(ctx, e.providers, e.log); err != nil {
		e.log.WithError(err).Warn("OpenTelemetry shutdown failed")
	}
}
