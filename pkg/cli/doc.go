// Package cli provides the depsane command-line interface.
//
// # Overview
//
// depsane audits the dependency declarations of a JavaScript package
// against the modules its code actually references.
//
// # Commands
//
// check (default): analyze one or more packages and print the findings
//
//	depsane
//	depsane check ./app ./lib --ignores 'babel-*,left-pad'
//	depsane --ignore-dirs fixtures --format github
//
// The exit code is 1 when any finding is reported or when a package cannot
// be analyzed, 0 otherwise. A clean package prints nothing.
//
// watch: re-analyze whenever a relevant file changes
//
//	depsane watch ./app --addr :8080 --debounce 1s
//
// With --addr the latest result is also served over HTTP (see package
// server).
//
// tools: list the tools whose packages are inferred from npm scripts
//
//	depsane tools
//
// # Configuration
//
// Settings are read from .depsane.yaml in the package root (or --config),
// then DEPSANE_* environment variables, then flags. Diagnostics are logged
// to stderr so the report on stdout stays machine readable.
package cli
