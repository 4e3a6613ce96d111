// Package observability provides logging, Prometheus metrics and
// OpenTelemetry setup for depsane.
//
// # Overview
//
// Every component logs through a logrus.FieldLogger handed to it by the
// command layer. Metrics are optional: a nil *Metrics records nothing, so
// library callers never need to build a registry. Tracing uses the global
// OpenTelemetry provider, which stays a no-op unless InitOTel is called
// with an endpoint.
//
// # Logging
//
//	log, err := observability.NewLogger("debug", "text", os.Stderr)
//	log.WithField("root", dir).Info("Analyzing package")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.FileParsed(observability.PhaseCrawl)
//
//	// batch runs: node-exporter textfile collector
//	observability.WriteTextfile(registry, "/var/lib/node_exporter/depsane.prom")
//
//	// watch mode
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Endpoint:    "localhost:4317",
//		ServiceName: "depsane",
//		Insecure:    true,
//	}, log)
//	defer observability.ShutdownOTel(ctx, providers, log)
package observability
