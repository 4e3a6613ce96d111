package cli

import (
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/depsane/pkg/analyzer"
	"github.com/platinummonkey/depsane/pkg/config"
	"github.com/platinummonkey/depsane/pkg/observability"
	"github.com/platinummonkey/depsane/pkg/report"
)

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir...]",
		Short: "Analyze packages and report unused and missing dependencies",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args)
		},
	}
}

// runCheck analyzes every dir concurrently and prints the results in
// argument order. The first fatal error aborts the remaining analyses.
func runCheck(cmd *cobra.Command, opts *options, dirs []string) error {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	cfgs := make([]*config.Config, len(dirs))
	for i, dir := range dirs {
		cfg, err := opts.load(cmd, dir)
		if err != nil {
			return err
		}
		cfgs[i] = cfg
	}

	env, err := setupEnv(cmd.Context(), cfgs[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.close()

	results := make([]*analyzer.Result, len(dirs))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, dir := range dirs {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = observability.MustRecover(r)
				}
			}()
			a := analyzer.New(env.analyzerOptions(cfgs[i], dir, nil))
			results[i], err = a.Analyze(ctx, dir)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	env.flushMetrics()

	format, err := report.ParseFormat(cfgs[0].Format)
	if err != nil {
		return err
	}
	if err := report.Write(cmd.OutOrStdout(), format, results); err != nil {
		return err
	}

	for _, r := range results {
		if !r.Verdict.Empty() {
			return ErrFindings
		}
	}
	return nil
}
