/*
Package server exposes the latest analysis of a watched package over HTTP.

# Overview

The server is used by watch mode. Every completed analysis is handed to
Server.Update and the endpoints below always answer from the most recent
result:

	GET /healthz          liveness and the time of the last analysis
	GET /api/v1/report    the latest result, same schema as --format json
	GET /api/v1/graph     file to package usage graph in Cytoscape.js format
	GET /metrics          Prometheus metrics

Handlers are wrapped with request logging, panic recovery and OpenTelemetry
HTTP instrumentation.
*/
package server
