package toolinfer

import (
	"fmt"

	"github.com/platinummonkey/depsane/pkg/resolve"
)

var mochaBuiltinUIs = map[string]bool{
	"bdd":     true,
	"tdd":     true,
	"qunit":   true,
	"exports": true,
}

var mochaBuiltinReporters = map[string]bool{
	"base":        true,
	"dot":         true,
	"doc":         true,
	"tap":         true,
	"json":        true,
	"html":        true,
	"list":        true,
	"min":         true,
	"spec":        true,
	"nyan":        true,
	"xunit":       true,
	"markdown":    true,
	"progress":    true,
	"landing":     true,
	"json-stream": true,
}

type mochaConfig struct {
	UI       string     `json:"ui" yaml:"ui"`
	Reporter string     `json:"reporter" yaml:"reporter"`
	Require  StringList `json:"require" yaml:"require"`
}

// MochaStrategy reads custom interfaces, reporters and required modules
// from mocharc files
type MochaStrategy struct {
	BaseStrategy
}

// NewMochaStrategy creates the mocha strategy
func NewMochaStrategy() *MochaStrategy {
	return &MochaStrategy{
		BaseStrategy: BaseStrategy{
			BinaryName:      "mocha",
			PackageNames:    []string{"mocha"},
			Configs:         []string{".mocharc.json", ".mocharc.yaml", ".mocharc.yml"},
			ToolDescription: "test runner; reads ui, reporter and require",
		},
	}
}

// FromConfig implements Strategy
func (s *MochaStrategy) FromConfig(path string, data []byte) ([]string, error) {
	var cfg mochaConfig
	if err := decodeConfig(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var out []string
	if cfg.UI != "" && !mochaBuiltinUIs[cfg.UI] {
		out = appendPackage(out, cfg.UI)
	}
	if cfg.Reporter != "" && !mochaBuiltinReporters[cfg.Reporter] {
		out = appendPackage(out, cfg.Reporter)
	}
	for _, req := range cfg.Require {
		out = appendPackage(out, req)
	}
	return out, nil
}

func appendPackage(out []string, spec string) []string {
	if spec == "" || resolve.IsLocal(spec) || resolve.IsBuiltin(spec) {
		return out
	}
	return append(out, resolve.PackageName(spec))
}
