// Package reconcile compares declared dependencies with observed usage.
package reconcile

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/platinummonkey/depsane/pkg/manifest"
	"github.com/platinummonkey/depsane/pkg/usage"
)

// Finding categories, used in reports and metrics
const (
	CategoryUnusedDependencies     = "unused-dependencies"
	CategoryUnusedDevDependencies  = "unused-devDependencies"
	CategoryMissingDependencies    = "missing-dependencies"
	CategoryMissingDevDependencies = "missing-devDependencies"
)

// Categories lists every finding category in report order
var Categories = []string{
	CategoryUnusedDependencies,
	CategoryUnusedDevDependencies,
	CategoryMissingDependencies,
	CategoryMissingDevDependencies,
}

// Missing is a used package that is not declared where it is needed
type Missing struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
	// DeclaredElsewhere is set when the package is declared in the other
	// section of the manifest
	DeclaredElsewhere bool `json:"declaredElsewhere"`
}

// Verdict is the outcome of reconciling a manifest with usage. Every list
// is sorted by package name.
type Verdict struct {
	UnusedDependencies     []string  `json:"unusedDependencies"`
	UnusedDevDependencies  []string  `json:"unusedDevDependencies"`
	MissingDependencies    []Missing `json:"missingDependencies"`
	MissingDevDependencies []Missing `json:"missingDevDependencies"`
}

// Reconcile computes the verdict for m's declared dependencies against
// production and development usage.
//
// A development-used package is not reported missing from devDependencies
// when it is declared in dependencies and production code also uses it.
func Reconcile(m *manifest.Manifest, prod, dev *usage.Map) Verdict {
	if prod == nil {
		prod = usage.New()
	}
	if dev == nil {
		dev = usage.New()
	}

	v := Verdict{
		UnusedDependencies:     unused(m.Dependencies, prod),
		UnusedDevDependencies:  unused(m.DevDependencies, dev),
		MissingDependencies:    []Missing{},
		MissingDevDependencies: []Missing{},
	}

	for _, name := range prod.Names() {
		if m.HasDependency(name) {
			continue
		}
		v.MissingDependencies = append(v.MissingDependencies, Missing{
			Name:              name,
			Files:             prod.Files(name),
			DeclaredElsewhere: m.HasDevDependency(name),
		})
	}

	for _, name := range dev.Names() {
		if m.HasDevDependency(name) {
			continue
		}
		inDeps := m.HasDependency(name)
		if inDeps && prod.Has(name) {
			continue
		}
		v.MissingDevDependencies = append(v.MissingDevDependencies, Missing{
			Name:              name,
			Files:             dev.Files(name),
			DeclaredElsewhere: inDeps,
		})
	}

	return v
}

func unused(declared map[string]string, used *usage.Map) []string {
	out := []string{}
	for name := range declared {
		if !used.Has(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Filter drops ignored package names. Unused lists drop names equal to or
// glob-matching a pattern; missing lists drop exact matches only.
func (v Verdict) Filter(patterns []string) Verdict {
	if len(patterns) == 0 {
		return v
	}
	exact := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		exact[p] = true
	}

	globbed := func(name string) bool {
		if exact[name] {
			return true
		}
		for _, p := range patterns {
			if ok, err := doublestar.Match(p, name); err == nil && ok {
				return true
			}
		}
		return false
	}

	return Verdict{
		UnusedDependencies:     filterNames(v.UnusedDependencies, globbed),
		UnusedDevDependencies:  filterNames(v.UnusedDevDependencies, globbed),
		MissingDependencies:    filterMissing(v.MissingDependencies, exact),
		MissingDevDependencies: filterMissing(v.MissingDevDependencies, exact),
	}
}

func filterNames(names []string, drop func(string) bool) []string {
	out := []string{}
	for _, n := range names {
		if !drop(n) {
			out = append(out, n)
		}
	}
	return out
}

func filterMissing(missing []Missing, drop map[string]bool) []Missing {
	out := []Missing{}
	for _, m := range missing {
		if !drop[m.Name] {
			out = append(out, m)
		}
	}
	return out
}

// Empty reports whether the verdict has no findings
func (v Verdict) Empty() bool {
	return v.Count() == 0
}

// Count returns the total number of findings
func (v Verdict) Count() int {
	return len(v.UnusedDependencies) + len(v.UnusedDevDependencies) +
		len(v.MissingDependencies) + len(v.MissingDevDependencies)
}

// Counts returns the number of findings per category
func (v Verdict) Counts() map[string]int {
	return map[string]int{
		CategoryUnusedDependencies:     len(v.UnusedDependencies),
		CategoryUnusedDevDependencies:  len(v.UnusedDevDependencies),
		CategoryMissingDependencies:    len(v.MissingDependencies),
		CategoryMissingDevDependencies: len(v.MissingDevDependencies),
	}
}

// ValidPattern reports whether p is a well-formed ignore pattern
func ValidPattern(p string) bool {
	return doublestar.ValidatePattern(p)
}
