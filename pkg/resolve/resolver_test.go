package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("module.exports = {};\n"), 0o644))
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"lodash", "lodash"},
		{"lodash/fp", "lodash"},
		{"lodash/fp/map", "lodash"},
		{"@scope/pkg", "@scope/pkg"},
		{"@scope/pkg/sub/deep", "@scope/pkg"},
		{"@scope", "@scope"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.want, PackageName(tt.spec))
		})
	}
}

func TestIsBuiltin(t *testing.T) {
	for _, spec := range []string{"fs", "fs/promises", "node:fs", "node:test", "path", "path/posix", "stream/web", "util/types", "worker_threads"} {
		assert.True(t, IsBuiltin(spec), spec)
	}
	// A trailing slash or an unknown subpath selects the npm package.
	for _, spec := range []string{"lodash", "fs-extra", "node:", "@types/node", "pathological", "buffer/", "punycode/", "events/lib/x", "fs/extra"} {
		assert.False(t, IsBuiltin(spec), spec)
	}
}

func TestResolve_PolyfillPackages(t *testing.T) {
	r := New()
	for spec, name := range map[string]string{
		"buffer/":      "buffer",
		"punycode/":    "punycode",
		"events/lib/x": "events",
	} {
		res := r.Resolve(spec, "/anywhere")
		assert.Equal(t, Package, res.Kind, spec)
		assert.Equal(t, name, res.Package, spec)
	}
}

func TestResolve_External(t *testing.T) {
	r := New()

	res := r.Resolve("@ns/pkg/sub", "/anywhere")
	assert.Equal(t, Package, res.Kind)
	assert.Equal(t, "@ns/pkg", res.Package)

	assert.Equal(t, Builtin, r.Resolve("node:path", "/anywhere").Kind)
	assert.Equal(t, Builtin, r.Resolve("fs/promises", "/anywhere").Kind)
	assert.Equal(t, Unresolved, r.Resolve("", "/anywhere").Kind)
}

func TestResolve_LocalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib.js"))
	writeFile(t, filepath.Join(dir, "lib", "index.js"))
	writeFile(t, filepath.Join(dir, "only", "index.js"))
	writeFile(t, filepath.Join(dir, "explicit.js"))

	r := New()

	res := r.Resolve("./lib", dir)
	assert.Equal(t, Local, res.Kind)
	assert.Equal(t, filepath.Join(dir, "lib.js"), res.Path)

	res = r.Resolve("./only", dir)
	assert.Equal(t, Local, res.Kind)
	assert.Equal(t, filepath.Join(dir, "only", "index.js"), res.Path)

	res = r.Resolve("./explicit.js", dir)
	assert.Equal(t, Local, res.Kind)
	assert.Equal(t, filepath.Join(dir, "explicit.js"), res.Path)

	res = r.Resolve(filepath.Join(dir, "explicit"), "/elsewhere")
	assert.Equal(t, Local, res.Kind)
	assert.Equal(t, filepath.Join(dir, "explicit.js"), res.Path)

	res = r.Resolve("../"+filepath.Base(dir)+"/lib", filepath.Join(dir, "only"))
	assert.Equal(t, Local, res.Kind)
	assert.Equal(t, filepath.Join(dir, "lib.js"), res.Path)
}

func TestResolve_LocalMissing(t *testing.T) {
	dir := t.TempDir()
	// A directory without index.js does not satisfy the lookup.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))

	r := New()
	res := r.Resolve("./missing", dir)
	assert.Equal(t, Unresolved, res.Kind)
	assert.Equal(t, filepath.Join(dir, "missing"), res.Path)

	assert.Equal(t, Unresolved, r.Resolve("./empty", dir).Kind)
}

func TestResolve_Assets(t *testing.T) {
	dir := t.TempDir()
	r := New()

	for _, spec := range []string{"./package.json", "./data.JSON", "./addon.node", "./style.css"} {
		res := r.Resolve(spec, dir)
		assert.Equal(t, Asset, res.Kind, spec)
	}
}

func TestResolve_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mjs"))
	writeFile(t, filepath.Join(dir, "b", "index.cjs"))

	r := New("mjs", ".cjs", "")
	assert.False(t, r.IsSource("x.js"))

	assert.Equal(t, filepath.Join(dir, "a.mjs"), r.Resolve("./a", dir).Path)
	assert.Equal(t, filepath.Join(dir, "b", "index.cjs"), r.Resolve("./b", dir).Path)
	assert.True(t, r.IsSource("x.mjs"))
	assert.False(t, r.IsSource("x.js"))
}

func TestResolveEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.js"))
	writeFile(t, filepath.Join(dir, "bin", "cli"))

	r := New()

	res := r.ResolveEntry(dir, "index.js")
	assert.Equal(t, Local, res.Kind)
	assert.Equal(t, filepath.Join(dir, "index.js"), res.Path)

	res = r.ResolveEntry(dir, "./bin/cli")
	assert.Equal(t, Local, res.Kind)
	assert.Equal(t, filepath.Join(dir, "bin", "cli"), res.Path)

	// Plain Resolve insists on a source extension.
	assert.Equal(t, Unresolved, r.Resolve("./bin/cli", dir).Kind)
	assert.Equal(t, Unresolved, r.ResolveEntry(dir, "nope.js").Kind)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "package", Package.String())
	assert.Equal(t, "unresolved", Unresolved.String())
	assert.Equal(t, "asset", Asset.String())
}
