// Package analyzer audits a JavaScript package's dependencies.
//
// # Overview
//
// Analyze loads package.json and then runs three phases over one session:
//
//  1. crawl: follow local references from the entry points (main and every
//     bin script). Packages referenced here are production usage.
//  2. infer-tools: packages implied by the tools the npm scripts run.
//  3. scan: walk every remaining source file under the root. Packages
//     referenced here are development usage. Files the crawl already
//     parsed are never parsed again, so they cannot count as development
//     usage.
//
// The usage maps are then reconciled against the declared dependencies.
//
// # Usage Example
//
//	a := analyzer.New(analyzer.Options{
//		IgnoreDirs: []string{"/src/pkg/fixtures"},
//		Ignores:    []string{"eslint*"},
//		Logger:     log,
//	})
//	result, err := a.Analyze(ctx, "/src/pkg")
//	if err != nil {
//		return err // missing or malformed package.json
//	}
//	if !result.Verdict.Empty() {
//		report.Write(os.Stdout, report.FormatText, result)
//	}
//
// Per-file problems (unreadable files, syntax errors, references to files
// that do not exist) are logged and never fail the analysis.
package analyzer
