// Package usage records which files use which packages.
package usage

import (
	"encoding/json"
	"sort"
)

// Map associates a package name with the set of files that reference it.
// A name is only present once at least one file has been added for it.
// The zero value is not usable; create maps with New.
type Map struct {
	entries map[string]map[string]struct{}
}

// New creates an empty usage map
func New() *Map {
	return &Map{entries: make(map[string]map[string]struct{})}
}

// Add records that file uses name
func (m *Map) Add(name, file string) {
	files, ok := m.entries[name]
	if !ok {
		files = make(map[string]struct{})
		m.entries[name] = files
	}
	files[file] = struct{}{}
}

// Has reports whether any file uses name
func (m *Map) Has(name string) bool {
	_, ok := m.entries[name]
	return ok
}

// Files returns the sorted files that use name
func (m *Map) Files(name string) []string {
	files := m.entries[name]
	out := make([]string, 0, len(files))
	for f := range files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Names returns every used package name, sorted
func (m *Map) Names() []string {
	out := make([]string, 0, len(m.entries))
	for name := range m.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct package names
func (m *Map) Len() int {
	return len(m.entries)
}

// Snapshot returns a plain copy with sorted file lists
func (m *Map) Snapshot() map[string][]string {
	out := make(map[string][]string, len(m.entries))
	for name := range m.entries {
		out[name] = m.Files(name)
	}
	return out
}

// MarshalJSON encodes the map as name -> sorted file list
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}
