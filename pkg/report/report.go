// Package report renders analysis results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/depsane/pkg/analyzer"
	"github.com/platinummonkey/depsane/pkg/reconcile"
)

// Format is an output format
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatGitHub Format = "github"
)

// Formats lists the supported output formats
var Formats = []Format{FormatText, FormatJSON, FormatGitHub}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or github)", s)
}

const (
	devElsewhereNote  = " (exists in devDependencies but needed in dependencies!)"
	prodElsewhereNote = " (exists in dependencies but is only used as dev, maybe move it to devDependencies?)"
)

// Summary totals a set of results
type Summary struct {
	Roots    int            `json:"roots"`
	Findings int            `json:"findings"`
	ByKind   map[string]int `json:"byCategory"`
}

// Summarize totals the findings of results
func Summarize(results []*analyzer.Result) Summary {
	s := Summary{Roots: len(results), ByKind: make(map[string]int)}
	for _, r := range results {
		for category, n := range r.Verdict.Counts() {
			s.ByKind[category] += n
			s.Findings += n
		}
	}
	return s
}

// Write renders results in the given format
func Write(w io.Writer, format Format, results []*analyzer.Result) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, results)
	case FormatGitHub:
		return writeGitHub(w, results)
	case FormatText, "":
		return writeText(w, results)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeText prints only the sections that have findings, so a clean
// package produces no output at all
func writeText(w io.Writer, results []*analyzer.Result) error {
	var b strings.Builder
	for _, r := range results {
		if r.Verdict.Empty() {
			continue
		}
		if len(results) > 1 {
			fmt.Fprintf(&b, "%s\n", r.Root)
		}
		v := r.Verdict

		writeNames(&b, "Unused dependencies", v.UnusedDependencies)
		writeNames(&b, "Unused devDependencies", v.UnusedDevDependencies)
		writeMissing(&b, r.Root, "Missing dependencies", v.MissingDependencies, devElsewhereNote)
		writeMissing(&b, r.Root, "Missing devDependencies", v.MissingDevDependencies, prodElsewhereNote)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeNames(b *strings.Builder, heading string, names []string) {
	if len(names) == 0 {
		return
	}
	b.WriteString(heading + "\n")
	for _, n := range names {
		fmt.Fprintf(b, "* %s\n", n)
	}
}

func writeMissing(b *strings.Builder, root, heading string, missing []reconcile.Missing, note string) {
	if len(missing) == 0 {
		return
	}
	b.WriteString(heading + "\n")
	for _, m := range missing {
		quoted := make([]string, 0, len(m.Files))
		for _, f := range m.Files {
			quoted = append(quoted, fmt.Sprintf("%q", Relative(root, f)))
		}
		fmt.Fprintf(b, "* %s: %s", m.Name, strings.Join(quoted, ", "))
		if m.DeclaredElsewhere {
			b.WriteString(note)
		}
		b.WriteString("\n")
	}
}

func writeJSON(w io.Writer, results []*analyzer.Result) error {
	output := struct {
		Results []*analyzer.Result `json:"results"`
		Summary Summary            `json:"summary"`
	}{
		Results: results,
		Summary: Summarize(results),
	}
	if output.Results == nil {
		output.Results = []*analyzer.Result{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// writeGitHub emits GitHub Actions workflow commands. Unused entries are
// attached to the manifest, missing ones to every file that uses them.
func writeGitHub(w io.Writer, results []*analyzer.Result) error {
	// ::error file={name}::{message}
	for _, r := range results {
		manifestFile := filepath.Join(r.Root, "package.json")
		if r.Manifest != nil {
			manifestFile = r.Manifest.Path
		}
		manifestRel := Relative(r.Root, manifestFile)
		v := r.Verdict

		for _, n := range v.UnusedDependencies {
			if err := annotate(w, "warning", manifestRel, fmt.Sprintf("[%s] %s is declared in dependencies but never used", reconcile.CategoryUnusedDependencies, n)); err != nil {
				return err
			}
		}
		for _, n := range v.UnusedDevDependencies {
			if err := annotate(w, "warning", manifestRel, fmt.Sprintf("[%s] %s is declared in devDependencies but never used", reconcile.CategoryUnusedDevDependencies, n)); err != nil {
				return err
			}
		}
		for _, m := range v.MissingDependencies {
			msg := fmt.Sprintf("[%s] %s is used but not declared in dependencies", reconcile.CategoryMissingDependencies, m.Name)
			if m.DeclaredElsewhere {
				msg += devElsewhereNote
			}
			for _, f := range m.Files {
				if err := annotate(w, "error", Relative(r.Root, f), msg); err != nil {
					return err
				}
			}
		}
		for _, m := range v.MissingDevDependencies {
			msg := fmt.Sprintf("[%s] %s is used but not declared in devDependencies", reconcile.CategoryMissingDevDependencies, m.Name)
			if m.DeclaredElsewhere {
				msg += prodElsewhereNote
			}
			for _, f := range m.Files {
				if err := annotate(w, "error", Relative(r.Root, f), msg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func annotate(w io.Writer, level, file, msg string) error {
	_, err := fmt.Fprintf(w, "::%s file=%s::%s\n", level, escapeProperty(file), escapeData(msg))
	return err
}

// escapeData and escapeProperty follow the workflow command escaping rules
func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

func escapeProperty(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C").Replace(s)
}

// Relative returns file relative to root with forward slashes, or file
// unchanged when it lies outside root
func Relative(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return file
	}
	return filepath.ToSlash(rel)
}
