package resolve

import "strings"

const nodeScheme = "node:"

// nodeBuiltinModules lists Node.js core modules, the top-level names of
// require('module').builtinModules without private or subpath entries.
var nodeBuiltinModules = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}

// nodeBuiltinSubpaths are the core modules exposed under a subpath.
// Any other subpath of a core name ("buffer/", "events/lib/x") loads the
// npm package of that name.
var nodeBuiltinSubpaths = map[string]bool{
	"assert/strict":      true,
	"dns/promises":       true,
	"fs/promises":        true,
	"inspector/promises": true,
	"path/posix":         true,
	"path/win32":         true,
	"readline/promises":  true,
	"stream/consumers":   true,
	"stream/promises":    true,
	"stream/web":         true,
	"timers/promises":    true,
	"util/types":         true,
}

// IsBuiltin reports whether spec names a Node.js core module. Both bare
// ("fs") and scheme-prefixed ("node:fs") forms are recognized, as are the
// core subpaths such as "fs/promises". Anything behind the node: scheme is
// a builtin, including ones newer than this table.
func IsBuiltin(spec string) bool {
	if rest, ok := strings.CutPrefix(spec, nodeScheme); ok {
		return rest != ""
	}
	return nodeBuiltinModules[spec] || nodeBuiltinSubpaths[spec]
}
