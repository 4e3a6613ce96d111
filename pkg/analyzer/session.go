package analyzer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/depsane/pkg/jsparse"
	"github.com/platinummonkey/depsane/pkg/manifest"
	"github.com/platinummonkey/depsane/pkg/observability"
	"github.com/platinummonkey/depsane/pkg/resolve"
	"github.com/platinummonkey/depsane/pkg/toolinfer"
	"github.com/platinummonkey/depsane/pkg/usage"
)

// skipDirs are never scanned, wherever they appear
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
}

// session holds the state of one analysis run
type session struct {
	a          *Analyzer
	manifest   *manifest.Manifest
	ignoreDirs []string
	log        logrus.FieldLogger

	visited    map[string]struct{}
	prod       *usage.Map
	dev        *usage.Map
	inferences []toolinfer.Inference
	stats      Stats
}

func newSession(a *Analyzer, m *manifest.Manifest, ignoreDirs []string, log logrus.FieldLogger) *session {
	return &session{
		a:          a,
		manifest:   m,
		ignoreDirs: ignoreDirs,
		log:        log,
		visited:    make(map[string]struct{}),
		prod:       usage.New(),
		dev:        usage.New(),
	}
}

// visit marks path as parsed and reports whether it was new
func (s *session) visit(path string) bool {
	if _, ok := s.visited[path]; ok {
		return false
	}
	s.visited[path] = struct{}{}
	return true
}

// crawl follows local references from the entry points and records
// production usage
func (s *session) crawl(ctx context.Context) error {
	ctx, span := observability.Tracer().Start(ctx, "crawl")
	defer span.End()

	var stack []string
	for _, entry := range s.manifest.EntryPoints() {
		res := s.a.resolver.ResolveEntry(s.manifest.Root, entry)
		if res.Kind != resolve.Local {
			s.log.WithField("file", res.Path).Warnf("%s does not exist", res.Path)
			s.stats.UnresolvedReferences++
			s.a.opts.Metrics.UnresolvedReference()
			continue
		}
		stack = append(stack, res.Path)
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		file := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !s.visit(file) {
			continue
		}
		s.stats.FilesCrawled++

		locals, err := s.parseFile(ctx, file, observability.PhaseCrawl, s.prod)
		if err != nil {
			return err
		}
		stack = append(stack, locals...)
	}

	span.SetAttributes(
		attribute.Int("depsane.files", s.stats.FilesCrawled),
		attribute.Int("depsane.packages", s.prod.Len()),
	)
	return nil
}

// inferTools records development packages implied by npm scripts
func (s *session) inferTools(ctx context.Context) {
	_, span := observability.Tracer().Start(ctx, "infer-tools")
	defer span.End()

	s.inferences = s.a.opts.Tools.Infer(s.manifest, s.log)
	for _, inf := range s.inferences {
		s.dev.Add(inf.Package, inf.Source)
		source := "config"
		if inf.Source == s.manifest.Path {
			source = "script"
		}
		s.a.opts.Metrics.ToolPackage(source)
	}
	s.stats.ToolPackages = len(s.inferences)
	span.SetAttributes(attribute.Int("depsane.packages", len(s.inferences)))
}

// scan parses every source file the crawl did not reach and records
// development usage
func (s *session) scan(ctx context.Context) error {
	ctx, span := observability.Tracer().Start(ctx, "scan")
	defer span.End()

	err := filepath.WalkDir(s.manifest.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.log.WithError(err).WithField("file", path).Warn("Failed to read directory entry")
			if d != nil && d.IsDir() && path != s.manifest.Root {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != s.manifest.Root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if s.ignored(path) {
				s.log.WithField("dir", path).Debug("Skipping ignored directory")
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !s.a.resolver.IsSource(path) {
			return nil
		}
		if !s.visit(path) {
			return nil
		}
		s.stats.FilesScanned++

		_, err = s.parseFile(ctx, path, observability.PhaseScan, s.dev)
		return err
	})
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("depsane.files", s.stats.FilesScanned))
	return nil
}

func (s *session) ignored(dir string) bool {
	for _, ignore := range s.ignoreDirs {
		if hasPathPrefix(dir, ignore) {
			return true
		}
	}
	return false
}

// parseFile extracts the references of one file, records package usage
// into used and returns the local files it references. Only context
// errors are returned; everything else is logged.
func (s *session) parseFile(ctx context.Context, file, phase string, used *usage.Map) ([]string, error) {
	log := s.log.WithField("file", file)

	src, err := os.ReadFile(file)
	if err != nil {
		log.WithError(err).Warn("Failed to read file")
		s.parseError(phase, "read")
		return nil, nil
	}
	s.a.opts.Metrics.FileParsed(phase)

	refs, err := s.a.opts.Extractor.ExtractFile(ctx, file, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var syntaxErr *jsparse.SyntaxError
		if !errors.As(err, &syntaxErr) {
			log.WithError(err).Warn("Failed to parse file")
			s.parseError(phase, "invalid")
			return nil, nil
		}
		log.WithFields(logrus.Fields{
			"position":  syntaxErr.Position.String(),
			"recovered": syntaxErr.Recovered,
		}).Warn("Syntax error, using recovered references")
		s.parseError(phase, "syntax")
	}

	dir := filepath.Dir(file)
	var locals []string
	for _, ref := range refs {
		res := s.a.resolver.Resolve(ref.Specifier(), dir)
		s.a.opts.Metrics.Reference(jsparse.Kind(ref), res.Kind.String())

		switch res.Kind {
		case resolve.Package:
			used.Add(res.Package, file)
		case resolve.Local:
			locals = append(locals, res.Path)
		case resolve.Unresolved:
			if res.Path == "" {
				continue
			}
			log.WithFields(logrus.Fields{
				"reference": ref.Specifier(),
				"position":  ref.Pos().String(),
			}).Warnf("%s does not exist", res.Path)
			s.stats.UnresolvedReferences++
			s.a.opts.Metrics.UnresolvedReference()
		}
	}
	return locals, nil
}

func (s *session) parseError(phase, kind string) {
	s.stats.ParseErrors++
	s.a.opts.Metrics.ParseError(phase, kind)
}

// hasPathPrefix reports whether path is base or lies beneath it
func hasPathPrefix(path, base string) bool {
	path = filepath.Clean(path)
	base = filepath.Clean(base)
	if path == base {
		return true
	}
	if !strings.HasSuffix(base, string(filepath.Separator)) {
		base += string(filepath.Separator)
	}
	return strings.HasPrefix(path, base)
}
