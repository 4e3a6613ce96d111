package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/depsane/pkg/contextkeys"
	"github.com/platinummonkey/depsane/pkg/jsparse"
	"github.com/platinummonkey/depsane/pkg/manifest"
	"github.com/platinummonkey/depsane/pkg/observability"
	"github.com/platinummonkey/depsane/pkg/reconcile"
	"github.com/platinummonkey/depsane/pkg/resolve"
	"github.com/platinummonkey/depsane/pkg/toolinfer"
	"github.com/platinummonkey/depsane/pkg/usage"
)

// Options configures an Analyzer. The zero value is usable.
type Options struct {
	// IgnoreDirs are directories excluded from the scan. Relative paths are
	// resolved against the working directory. Matching follows path
	// boundaries, not string prefixes: "lib" excludes lib/x but not library/.
	IgnoreDirs []string
	// Ignores are package names or glob patterns removed from the verdict
	Ignores []string
	// Extensions are the source file extensions, ".js" by default
	Extensions []string
	Tools      *toolinfer.Registry
	Extractor  jsparse.Source
	Logger     logrus.FieldLogger
	Metrics    *observability.Metrics
}

// Analyzer runs dependency audits. It is safe for concurrent use; each
// Analyze call owns its own session.
type Analyzer struct {
	opts     Options
	resolver *resolve.Resolver
	log      logrus.FieldLogger
}

// New creates an analyzer
func New(opts Options) *Analyzer {
	if opts.Tools == nil {
		opts.Tools = toolinfer.DefaultRegistry()
	}
	if opts.Extractor == nil {
		opts.Extractor = jsparse.NewExtractor(jsparse.DefaultOptions())
	}
	return &Analyzer{
		opts:     opts,
		resolver: resolve.New(opts.Extensions...),
		log:      observability.OrDiscard(opts.Logger),
	}
}

// Stats summarizes the work done by one analysis
type Stats struct {
	FilesCrawled         int           `json:"filesCrawled"`
	FilesScanned         int           `json:"filesScanned"`
	ParseErrors          int           `json:"parseErrors"`
	UnresolvedReferences int           `json:"unresolvedReferences"`
	ToolPackages         int           `json:"toolPackages"`
	Duration             time.Duration `json:"duration"`
}

// Result is the outcome of one analysis
type Result struct {
	RunID               string                `json:"runId"`
	Root                string                `json:"root"`
	Manifest            *manifest.Manifest    `json:"-"`
	Dependencies        map[string]string     `json:"dependencies"`
	DevDependencies     map[string]string     `json:"devDependencies"`
	UsedDependencies    *usage.Map            `json:"usedDependencies"`
	UsedDevDependencies *usage.Map            `json:"usedDevDependencies"`
	Inferences          []toolinfer.Inference `json:"inferences"`
	Verdict             reconcile.Verdict     `json:"verdict"`
	Stats               Stats                 `json:"stats"`
	Finished            time.Time             `json:"finished"`
}

// Analyze audits the package rooted at root. It only fails when the
// manifest is missing or malformed, or when ctx is done.
func (a *Analyzer) Analyze(ctx context.Context, root string) (result *Result, err error) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := observability.Tracer().Start(ctx, "analyze", trace.WithAttributes(
		attribute.String("depsane.root", root),
		attribute.String("depsane.run_id", runID),
	))
	defer func() {
		status := "ok"
		findings := 0
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			findings = result.Verdict.Count()
			span.SetAttributes(attribute.Int("depsane.findings", findings))
		}
		a.opts.Metrics.ObserveAnalysis(status, time.Since(start), findings)
		span.End()
	}()

	ctx = contextkeys.WithRunID(ctx, runID)
	log := observability.WithContext(ctx, a.log.WithField("root", root))

	m, err := manifest.Load(root)
	if err != nil {
		return nil, err
	}

	ignoreDirs, err := absPaths(a.opts.IgnoreDirs)
	if err != nil {
		return nil, err
	}

	s := newSession(a, m, ignoreDirs, log)

	if err := s.crawl(ctx); err != nil {
		return nil, err
	}
	s.inferTools(ctx)
	if err := s.scan(ctx); err != nil {
		return nil, err
	}

	verdict := reconcile.Reconcile(m, s.prod, s.dev).Filter(a.opts.Ignores)
	for category, n := range verdict.Counts() {
		a.opts.Metrics.SetFindings(m.Root, category, n)
	}

	s.stats.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"files_crawled": s.stats.FilesCrawled,
		"files_scanned": s.stats.FilesScanned,
		"findings":      verdict.Count(),
		"duration":      s.stats.Duration,
	}).Info("Analysis complete")

	return &Result{
		RunID:               runID,
		Root:                m.Root,
		Manifest:            m,
		Dependencies:        m.Dependencies,
		DevDependencies:     m.DevDependencies,
		UsedDependencies:    s.prod,
		UsedDevDependencies: s.dev,
		Inferences:          s.inferences,
		Verdict:             verdict,
		Stats:               s.stats,
		Finished:            time.Now(),
	}, nil
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve ignore dir %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}
