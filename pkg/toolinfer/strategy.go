package toolinfer

import (
	"sort"
)

// Strategy describes what running one executable implies about a package's
// development dependencies
type Strategy interface {
	// Binary is the executable name matched against script commands
	Binary() string
	// Packages are the packages implied by running the binary at all
	Packages() []string
	// ConfigFiles are candidate configuration files relative to the package
	// root, in lookup order. Only the first existing one is read.
	ConfigFiles() []string
	Description() string
	// FromConfig returns the packages named by a configuration file
	FromConfig(path string, data []byte) ([]string, error)
}

// BaseStrategy provides common functionality for strategies. On its own it
// is a strategy for a tool without configuration files.
type BaseStrategy struct {
	BinaryName      string
	PackageNames    []string
	Configs         []string
	ToolDescription string
}

func (s *BaseStrategy) Binary() string        { return s.BinaryName }
func (s *BaseStrategy) Packages() []string    { return s.PackageNames }
func (s *BaseStrategy) ConfigFiles() []string { return s.Configs }
func (s *BaseStrategy) Description() string   { return s.ToolDescription }

// FromConfig reads nothing by default
func (s *BaseStrategy) FromConfig(path string, data []byte) ([]string, error) {
	return nil, nil
}

// Registry maps executable names to strategies
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a registry holding the built-in strategies
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewESLintStrategy())
	r.Register(NewMochaStrategy())
	r.Register(&BaseStrategy{
		BinaryName:      "chokidar",
		PackageNames:    []string{"chokidar-cli"},
		ToolDescription: "file watcher CLI",
	})
	r.Register(&BaseStrategy{
		BinaryName:      "nyc",
		PackageNames:    []string{"nyc"},
		ToolDescription: "istanbul coverage CLI",
	})
	r.Register(&BaseStrategy{
		BinaryName:      "jest",
		PackageNames:    []string{"jest"},
		ToolDescription: "test runner",
	})
	r.Register(&BaseStrategy{
		BinaryName:      "prettier",
		PackageNames:    []string{"prettier"},
		ToolDescription: "code formatter",
	})
	return r
}

// Register adds a strategy, replacing any strategy for the same binary
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Binary()] = s
}

// Lookup returns the strategy for a binary
func (r *Registry) Lookup(binary string) (Strategy, bool) {
	s, ok := r.strategies[binary]
	return s, ok
}

// All returns every strategy sorted by binary name
func (r *Registry) All() []Strategy {
	out := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Binary() < out[j].Binary() })
	return out
}
