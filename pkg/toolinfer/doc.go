// Package toolinfer infers development dependencies from the tools a
// package runs in its npm scripts.
//
// # Overview
//
// Many development dependencies are never required from code: they are
// executables invoked by scripts ("lint": "eslint .") or packages loaded
// by a tool's own configuration (an eslint preset named in .eslintrc.json).
// A Strategy describes one executable: the packages it implies and, when
// it has configuration files, how to read further packages out of them.
//
// # Strategies
//
//	eslint    eslint          extends, plugins and parser from .eslintrc*
//	mocha     mocha           ui, reporter and require from .mocharc*
//	chokidar  chokidar-cli
//	nyc       nyc
//	jest      jest
//	prettier  prettier
//
// # Usage Example
//
//	registry := toolinfer.DefaultRegistry()
//	for _, inf := range registry.Infer(m, log) {
//		dev.Add(inf.Package, inf.Source)
//	}
//
// The "start" script is never inspected; it runs the package itself.
package toolinfer
