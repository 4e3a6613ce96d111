package analyzer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/depsane/pkg/jsparse"
	"github.com/platinummonkey/depsane/pkg/manifest"
	"github.com/platinummonkey/depsane/pkg/observability"
	"github.com/platinummonkey/depsane/pkg/reconcile"
)

func TestAnalyze_ExistingAndMissingDependency(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"dependencies": {"existing-dep": "*"}}`,
		"index.js":     "require(\"existing-dep\");\nrequire(\"non-existing-dep\");\n",
	})

	result, err := New(Options{}).Analyze(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"non-existing-dep"}, names(result.Verdict.MissingDependencies))
	assert.Empty(t, result.Verdict.UnusedDependencies)
	assert.Equal(t, []string{filepath.Join(root, "index.js")}, result.UsedDependencies.Files("existing-dep"))
	assert.NotEmpty(t, result.RunID)
}

func TestAnalyze_PolyfillPackagesShadowingCoreModules(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"dependencies": {"buffer": "*", "punycode": "*", "events": "*"}}`,
		"index.js":     "require('buffer/');\nrequire('punycode/');\nrequire('events/lib/x');\nrequire('fs/promises');\n",
	})

	result, err := New(Options{}).Analyze(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"buffer", "events", "punycode"}, result.UsedDependencies.Names())
	assert.Empty(t, result.Verdict.UnusedDependencies)
	assert.Empty(t, result.Verdict.MissingDependencies)
}

func TestAnalyze_MissingManifest(t *testing.T) {
	_, err := New(Options{}).Analyze(context.Background(), t.TempDir())
	require.ErrorIs(t, err, manifest.ErrNotFound)
	assert.EqualError(t, err, "No package.json found")
}

func TestAnalyze_BrokenManifest(t *testing.T) {
	root := t.TempDir()
	broken := `{"dependencies": {"a": "*"`
	writeTree(t, root, map[string]string{"package.json": broken})

	_, err := New(Options{}).Analyze(context.Background(), root)
	require.Error(t, err)

	var v map[string]any
	want := json.Unmarshal([]byte(broken), &v)
	require.Error(t, want)
	assert.Equal(t, want.Error(), err.Error())
}

func TestAnalyze_CyclesParsedOnce(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"main": "a.js", "dependencies": {"x": "*"}}`,
		"a.js":         "require('./b'); require('./b.js'); require('x');\n",
		"b.js":         "require('./a'); require('x/sub');\n",
	})

	result, err := New(Options{}).Analyze(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.FilesCrawled)
	assert.Equal(t, 0, result.Stats.FilesScanned)
	assert.Equal(t, []string{filepath.Join(root, "a.js"), filepath.Join(root, "b.js")}, result.UsedDependencies.Files("x"))
	assert.True(t, result.Verdict.Empty())
}

func TestAnalyze_ScopedNormalization(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"dependencies": {"@ns/pkg": "*", "pkg": "*"}}`,
		"index.js":     "import x from '@ns/pkg/sub/path';\nconst y = require('pkg/sub/path');\nrequire('node:fs'); require('fs/promises');\n",
	})

	result, err := New(Options{}).Analyze(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"@ns/pkg", "pkg"}, result.UsedDependencies.Names())
	assert.True(t, result.Verdict.Empty())
}

func TestAnalyze_DevDependenciesAndAnnotations(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{
			"main": "lib/index.js",
			"bin": {"tool": "bin/tool.js"},
			"dependencies": {"used": "*", "shared": "*", "dev-only": "*", "unused-dep": "*"},
			"devDependencies": {"chai": "*", "needed-in-prod": "*", "mocha": "*", "unused-dev": "*"},
			"scripts": {"test": "mocha", "start": "nodemon"}
		}`,
		"lib/index.js":   "require('used'); require('shared'); require('./util');\n",
		"lib/util.js":    "require('needed-in-prod');\n",
		"bin/tool.js":    "#!/usr/bin/env node\nrequire('../lib');\n",
		"test/a.js":      "require('chai'); require('shared'); require('dev-only'); require('sinon');\n",
		"scripts/gen.js": "require('chai');\n",
		"node_modules/chai/index.js": "require('never-scanned');\n",
	})

	result, err := New(Options{}).Analyze(context.Background(), root)
	require.NoError(t, err)
	v := result.Verdict

	assert.Equal(t, []string{"unused-dep"}, v.UnusedDependencies)
	// needed-in-prod is declared as dev but only production code uses it.
	assert.Equal(t, []string{"needed-in-prod", "unused-dev"}, v.UnusedDevDependencies)
	assert.Equal(t, []reconcile.Missing{
		{Name: "needed-in-prod", Files: []string{filepath.Join(root, "lib", "util.js")}, DeclaredElsewhere: true},
	}, v.MissingDependencies)
	// shared is used in production, so its test usage is fine.
	assert.Equal(t, []reconcile.Missing{
		{Name: "dev-only", Files: []string{filepath.Join(root, "test", "a.js")}, DeclaredElsewhere: true},
		{Name: "sinon", Files: []string{filepath.Join(root, "test", "a.js")}},
	}, v.MissingDevDependencies)

	assert.Equal(t, []string{filepath.Join(root, "package.json")}, result.UsedDevDependencies.Files("mocha"))
	assert.False(t, result.UsedDevDependencies.Has("never-scanned"))
	assert.False(t, result.UsedDevDependencies.Has("nodemon"))
	assert.Equal(t, 3, result.Stats.FilesCrawled)
	assert.Equal(t, 2, result.Stats.FilesScanned)
}

func TestAnalyze_ReachableFilesAreNotDevUsage(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"dependencies": {"a": "*"}}`,
		"index.js":     "require('a');\n",
	})

	result, err := New(Options{}).Analyze(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, result.UsedDevDependencies.Len())
}

func TestAnalyze_IgnoreDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json":      `{"dependencies": {"a": "*"}}`,
		"index.js":          "require('a'); require('./molder/prod');\n",
		"molder/prod.js":    "require('b');\n",
		"molder/test.js":    "require('molder-only');\n",
		"molder/sub/x.js":   "require('deep-only');\n",
		"molderish/keep.js": "require('kept');\n",
	})

	result, err := New(Options{IgnoreDirs: []string{filepath.Join(root, "molder")}}).Analyze(context.Background(), root)
	require.NoError(t, err)

	// The crawl still follows into the ignored directory.
	assert.Equal(t, []string{"b"}, names(result.Verdict.MissingDependencies))
	assert.Equal(t, []string{"kept"}, names(result.Verdict.MissingDevDependencies))
}

func TestAnalyze_Ignores(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"devDependencies": {"eslint": "*", "eslint-plugin-x": "*", "epic-fixer": "*", "kept": "*"}}`,
		"index.js":     "",
	})

	result, err := New(Options{Ignores: []string{"eslint*", "epic-fixer"}}).Analyze(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, result.Verdict.UnusedDevDependencies)
}

func TestAnalyze_ToolInference(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json":   `{"devDependencies": {"eslint": "*", "eslint-config-airbnb": "*"}, "scripts": {"lint": "eslint ."}}`,
		".eslintrc.json": `{"extends": ["airbnb"]}`,
		"index.js":       "",
	})

	result, err := New(Options{}).Analyze(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, result.Verdict.Empty())
	assert.Equal(t, []string{filepath.Join(root, ".eslintrc.json")}, result.UsedDevDependencies.Files("eslint-config-airbnb"))
	assert.Equal(t, 2, result.Stats.ToolPackages)
}

func TestAnalyze_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"dependencies": {"a": "*", "b": "*"}, "devDependencies": {"c": "*"}}`,
		"index.js":     "require('a'); require('./lib');\n",
		"lib.js":       "require('z');\n",
		"test/t.js":    "require('y'); require('a');\n",
	})

	a := New(Options{Extractor: jsparse.NewCachingExtractor(nil, jsparse.DefaultCacheConfig())})
	first, err := a.Analyze(context.Background(), root)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first.Verdict, second.Verdict)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestAnalyze_RecoverableProblems(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"main": "missing.js", "bin": {"t": "tool.js"}, "dependencies": {"a": "*"}}`,
		"tool.js":      "require('a'); require('./gone'); require('./data.json');\nconst = ;\n",
		"other.js":     "((((\n",
	})

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	result, err := New(Options{Logger: log, Metrics: metrics}).Analyze(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, result.Verdict.Empty())
	assert.Equal(t, 2, result.Stats.UnresolvedReferences)
	assert.Equal(t, 2, result.Stats.ParseErrors)

	var missingLogged bool
	for _, e := range hook.AllEntries() {
		if e.Message == filepath.Join(root, "gone")+" does not exist" {
			missingLogged = true
			assert.Equal(t, "./gone", e.Data["reference"])
		}
	}
	assert.True(t, missingLogged)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.UnresolvedReferencesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FilesParsedTotal.WithLabelValues(observability.PhaseCrawl)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AnalysesTotal.WithLabelValues("ok")))
}

func TestAnalyze_Canceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{}`,
		"index.js":     "",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Analyze(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"main": "index.mjs", "dependencies": {"a": "*"}}`,
		"index.mjs":    "import a from 'a';\nimport './util';\n",
		"util.cjs":     "require('b');\n",
		"ignored.js":   "require('c');\n",
	})

	result, err := New(Options{Extensions: []string{".mjs", ".cjs"}}).Analyze(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(result.Verdict.MissingDependencies))
	assert.Empty(t, result.Verdict.MissingDevDependencies)
}

func TestHasPathPrefix(t *testing.T) {
	assert.True(t, hasPathPrefix("/a/b", "/a/b"))
	assert.True(t, hasPathPrefix("/a/b/c", "/a/b"))
	assert.True(t, hasPathPrefix("/a/b/c", "/a/b/"))
	assert.False(t, hasPathPrefix("/a/bc", "/a/b"))
	assert.False(t, hasPathPrefix("/a", "/a/b"))
}
