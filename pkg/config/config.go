package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/depsane/pkg/observability"
	"github.com/platinummonkey/depsane/pkg/reconcile"
	"github.com/platinummonkey/depsane/pkg/report"
)

// FileNames are the config file names looked up in a package root, in order
var FileNames = []string{".depsane.yaml", ".depsane.yml", "depsane.yaml"}

// Config holds all depsane settings
type Config struct {
	Ignores    []string      `yaml:"ignores"`
	IgnoreDirs []string      `yaml:"ignore_dirs"`
	Extensions []string      `yaml:"extensions"`
	Format     string        `yaml:"format"`
	Log        LogConfig     `yaml:"log"`
	Metrics    MetricsConfig `yaml:"metrics"`
	OTel       OTelConfig    `yaml:"otel"`
	Watch      WatchConfig   `yaml:"watch"`
	Cache      CacheConfig   `yaml:"cache"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures metrics export for batch runs
type MetricsConfig struct {
	File string `yaml:"file"`
}

// OTelConfig configures trace and metric export
type OTelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	Addr     string        `yaml:"addr"`
	Debounce time.Duration `yaml:"debounce"`
}

// CacheConfig configures the parse cache used by watch mode
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Format: string(report.FormatText),
		Log: LogConfig{
			Level:  logrus.WarnLevel.String(),
			Format: observability.LogFormatText,
		},
		OTel: OTelConfig{
			Insecure: true,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			MaxEntries: 4096,
			TTL:        30 * time.Minute,
		},
	}
}

// LoadConfig reads a config file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Path = path

	return cfg, nil
}

// LoadConfigFromDir loads the first config file found in dir, or the
// defaults when there is none
func LoadConfigFromDir(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}

	return DefaultConfig(), nil
}

// ApplyEnv overrides settings from DEPSANE_* environment variables.
// Ignore dirs from the environment are made absolute against the working
// directory.
func (c *Config) ApplyEnv() error {
	c.Log.Level = getEnv("DEPSANE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("DEPSANE_LOG_FORMAT", c.Log.Format)
	c.Format = getEnv("DEPSANE_FORMAT", c.Format)
	c.Ignores = append(c.Ignores, getEnvList("DEPSANE_IGNORES")...)
	c.Metrics.File = getEnv("DEPSANE_METRICS_FILE", c.Metrics.File)
	c.OTel.Endpoint = getEnv("DEPSANE_OTEL_ENDPOINT", c.OTel.Endpoint)
	c.OTel.Insecure = getEnvBool("DEPSANE_OTEL_INSECURE", c.OTel.Insecure)
	c.Watch.Addr = getEnv("DEPSANE_WATCH_ADDR", c.Watch.Addr)
	c.Watch.Debounce = getEnvDuration("DEPSANE_WATCH_DEBOUNCE", c.Watch.Debounce)
	c.Cache.MaxEntries = getEnvInt("DEPSANE_CACHE_SIZE", c.Cache.MaxEntries)

	for _, dir := range getEnvList("DEPSANE_IGNORE_DIRS") {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid DEPSANE_IGNORE_DIRS entry %s: %w", dir, err)
		}
		c.IgnoreDirs = append(c.IgnoreDirs, abs)
	}
	return nil
}

// ResolveIgnoreDirs returns the ignore dirs as absolute paths, resolving
// relative entries against the package root
func (c *Config) ResolveIgnoreDirs(root string) []string {
	out := make([]string, 0, len(c.IgnoreDirs))
	for _, dir := range c.IgnoreDirs {
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		out = append(out, filepath.Clean(dir))
	}
	return out
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if _, err := report.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.Log.Format != observability.LogFormatText && c.Log.Format != observability.LogFormatJSON {
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	for _, p := range c.Ignores {
		if !reconcile.ValidPattern(p) {
			return fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	for _, ext := range c.Extensions {
		if ext == "" || strings.ContainsRune(ext, filepath.Separator) {
			return fmt.Errorf("invalid source extension %q", ext)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch debounce must not be negative")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max entries must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items
func getEnvList(key string) []string {
	return SplitList(os.Getenv(key))
}

// SplitList splits a comma-separated list, trimming blanks and dropping
// empty items
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
