// Package config provides depsane configuration from a YAML file and
// environment variables.
//
// # Overview
//
// Settings are layered: built-in defaults, then the first config file
// found in the package root (.depsane.yaml, .depsane.yml, depsane.yaml),
// then environment variables. Command-line flags are applied last by the
// cli package.
//
// # Configuration File
//
//	ignores: ["eslint*", "epic-fixer"]
//	ignore_dirs: ["test/fixtures"]   # relative to the package root
//	extensions: [".js", ".cjs"]
//	format: text                     # text, json, github
//	log:
//	  level: warn
//	  format: text
//	metrics:
//	  file: /var/lib/node_exporter/depsane.prom
//	otel:
//	  endpoint: otel-collector:4317
//	  insecure: true
//	watch:
//	  addr: ":8080"
//	  debounce: 500ms
//	cache:
//	  max_entries: 4096
//	  ttl: 30m
//
// # Environment
//
//	DEPSANE_LOG_LEVEL="debug"
//	DEPSANE_LOG_FORMAT="json"
//	DEPSANE_FORMAT="github"
//	DEPSANE_IGNORES="eslint*,epic-fixer"
//	DEPSANE_IGNORE_DIRS="test/fixtures"   # relative to the working directory
//	DEPSANE_METRICS_FILE="/tmp/depsane.prom"
//	DEPSANE_OTEL_ENDPOINT="localhost:4317"
//	DEPSANE_OTEL_INSECURE="true"
//	DEPSANE_WATCH_ADDR=":8080"
//	DEPSANE_WATCH_DEBOUNCE="1s"
//	DEPSANE_CACHE_SIZE="8192"
package config
