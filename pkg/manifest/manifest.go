package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileName is the manifest file looked up in a package root
const FileName = "package.json"

// DefaultMain is the entry point used when the manifest has no "main" field
const DefaultMain = "index.js"

// ErrNotFound is returned when the package root has no manifest.
// The message is shown to users verbatim.
var ErrNotFound = errors.New("No package.json found")

// Manifest is the subset of package.json the analyzer reads
type Manifest struct {
	Name            string            `json:"name,omitempty"`
	Main            string            `json:"main,omitempty"`
	Bin             Bin               `json:"bin,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`

	// Path is the absolute path of the manifest file
	Path string `json:"-"`
	// Root is the absolute directory containing the manifest
	Root string `json:"-"`
}

// Bin holds the named executables of a package. package.json allows either
// a map of name to path or a single path string; the latter is stored under
// an empty name.
type Bin map[string]string

// UnmarshalJSON accepts both the object and the string form of "bin"
func (b *Bin) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*b = Bin{"": single}
		return nil
	}

	var named map[string]string
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}
	*b = Bin(named)
	return nil
}

// Load reads and parses the manifest in root.
//
// A missing manifest yields ErrNotFound. A malformed manifest yields the
// JSON decoder's error unwrapped, so its text reaches the user unchanged.
func Load(root string) (*Manifest, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	path := filepath.Join(absRoot, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
	if m.DevDependencies == nil {
		m.DevDependencies = map[string]string{}
	}
	if m.Scripts == nil {
		m.Scripts = map[string]string{}
	}
	m.Path = path
	m.Root = absRoot

	return &m, nil
}

// EntryPoints returns the root-relative entry points: main (or index.js)
// followed by every bin path ordered by bin name.
func (m *Manifest) EntryPoints() []string {
	main := m.Main
	if main == "" {
		main = DefaultMain
	}
	entries := []string{main}

	names := make([]string, 0, len(m.Bin))
	for name := range m.Bin {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := m.Bin[name]; p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// ScriptNames returns the script names in lexical order
func (m *Manifest) ScriptNames() []string {
	names := make([]string, 0, len(m.Scripts))
	for name := range m.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasDependency reports whether name is declared under "dependencies"
func (m *Manifest) HasDependency(name string) bool {
	_, ok := m.Dependencies[name]
	return ok
}

// HasDevDependency reports whether name is declared under "devDependencies"
func (m *Manifest) HasDevDependency(name string) bool {
	_, ok := m.DevDependencies[name]
	return ok
}
