package toolinfer

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/depsane/pkg/resolve"
)

const (
	eslintConfigPrefix = "eslint-config"
	eslintPluginPrefix = "eslint-plugin"
	eslintBuiltin      = "eslint:"
	eslintPluginPreset = "plugin:"
)

type eslintConfig struct {
	Extends   StringList     `json:"extends" yaml:"extends"`
	Plugins   StringList     `json:"plugins" yaml:"plugins"`
	Parser    string         `json:"parser" yaml:"parser"`
	Overrides []eslintConfig `json:"overrides" yaml:"overrides"`
}

// ESLintStrategy reads shareable configs, plugins and parsers from legacy
// eslintrc files
type ESLintStrategy struct {
	BaseStrategy
}

// NewESLintStrategy creates the eslint strategy
func NewESLintStrategy() *ESLintStrategy {
	return &ESLintStrategy{
		BaseStrategy: BaseStrategy{
			BinaryName:      "eslint",
			PackageNames:    []string{"eslint"},
			Configs:         []string{".eslintrc.json", ".eslintrc", ".eslintrc.yaml", ".eslintrc.yml"},
			ToolDescription: "linter; reads extends, plugins and parser",
		},
	}
}

// FromConfig implements Strategy
func (s *ESLintStrategy) FromConfig(path string, data []byte) ([]string, error) {
	var cfg eslintConfig
	if err := decodeConfig(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg.packages(), nil
}

func (c eslintConfig) packages() []string {
	var out []string
	for _, ext := range c.Extends {
		if name := eslintExtendsPackage(ext); name != "" {
			out = append(out, name)
		}
	}
	for _, plugin := range c.Plugins {
		if name := eslintPackage(plugin, eslintPluginPrefix); name != "" {
			out = append(out, name)
		}
	}
	if c.Parser != "" && !resolve.IsLocal(c.Parser) {
		out = append(out, resolve.PackageName(c.Parser))
	}
	for _, o := range c.Overrides {
		out = append(out, o.packages()...)
	}
	return out
}

func eslintExtendsPackage(ext string) string {
	switch {
	case ext == "", strings.HasPrefix(ext, eslintBuiltin), resolve.IsLocal(ext):
		return ""
	case strings.HasPrefix(ext, eslintPluginPreset):
		plugin := strings.TrimPrefix(ext, eslintPluginPreset)
		// The preset name follows the last slash: plugin:react/recommended,
		// plugin:@scope/recommended, plugin:@scope/name/recommended.
		if i := strings.LastIndex(plugin, "/"); i > 0 {
			plugin = plugin[:i]
		}
		return eslintPackage(plugin, eslintPluginPrefix)
	default:
		return eslintPackage(ext, eslintConfigPrefix)
	}
}

// eslintPackage applies eslint's package naming convention for prefix:
// "airbnb" is eslint-config-airbnb, "@scope" is @scope/eslint-config and
// "@scope/x" is @scope/eslint-config-x. Names already carrying the prefix
// are kept. Anything after the package name is dropped.
func eslintPackage(name, prefix string) string {
	if name == "" || resolve.IsLocal(name) {
		return ""
	}
	if strings.HasPrefix(name, "@") {
		scope, rest, _ := strings.Cut(name, "/")
		rest, _, _ = strings.Cut(rest, "/")
		switch {
		case rest == "":
			return scope + "/" + prefix
		case rest == prefix || strings.HasPrefix(rest, prefix+"-"):
			return scope + "/" + rest
		default:
			return scope + "/" + prefix + "-" + rest
		}
	}
	if !strings.HasPrefix(name, prefix+"-") {
		name = prefix + "-" + name
	}
	return resolve.PackageName(name)
}
