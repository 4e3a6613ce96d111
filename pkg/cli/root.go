package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/depsane/pkg/config"
)

// Version is reported by --version and attached to telemetry
var Version = "dev"

// ErrFindings is returned when an analysis reports findings. It only
// changes the exit code; the findings themselves are already printed.
var ErrFindings = errors.New("findings reported")

// options holds the flags shared by every command
type options struct {
	configPath   string
	ignores      []string
	ignoreDirs   []string
	extensions   []string
	format       string
	logLevel     string
	metricsFile  string
	otelEndpoint string
}

// NewRootCommand creates the depsane command tree. Running it without a
// subcommand behaves like check.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "depsane [dir...]",
		Short: "Find unused and missing dependencies in JavaScript packages",
		Long: `depsane compares the dependencies and devDependencies declared in
package.json with the modules the package's code references.

Files reachable from the package entry points count as production usage,
every other source file counts as development usage.`,
		Args:          cobra.ArbitraryArgs,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default: .depsane.yaml in the package root)")
	flags.StringSliceVar(&opts.ignores, "ignores", nil, "Package names or glob patterns to leave out of the report")
	flags.StringSliceVar(&opts.ignoreDirs, "ignore-dirs", nil, "Directories to leave out of the scan")
	flags.StringSliceVar(&opts.extensions, "extensions", nil, "Source file extensions (default: .js)")
	flags.StringVar(&opts.format, "format", "", "Output format: text|json|github")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each analysis")
	flags.StringVar(&opts.otelEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint for traces and metrics")

	root.AddCommand(
		newCheckCommand(opts),
		newWatchCommand(opts),
		newToolsCommand(),
	)

	return root
}

// Execute runs the CLI with args and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrFindings) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}

// load builds the settings for the package in dir: config file, then
// environment, then flags that were set explicitly
func (o *options) load(cmd *cobra.Command, dir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadConfig(o.configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(dir)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = o.format
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File = o.metricsFile
	}
	if flags.Changed("otel-endpoint") {
		cfg.OTel.Endpoint = o.otelEndpoint
	}
	if len(o.extensions) > 0 {
		cfg.Extensions = o.extensions
	}
	cfg.Ignores = append(cfg.Ignores, o.ignores...)
	for _, d := range o.ignoreDirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore dir %s: %w", d, err)
		}
		cfg.IgnoreDirs = append(cfg.IgnoreDirs, abs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
