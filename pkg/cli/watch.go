package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/depsane/pkg/analyzer"
	"github.com/platinummonkey/depsane/pkg/config"
	"github.com/platinummonkey/depsane/pkg/jsparse"
	"github.com/platinummonkey/depsane/pkg/observability"
	"github.com/platinummonkey/depsane/pkg/report"
	"github.com/platinummonkey/depsane/pkg/server"
	"github.com/platinummonkey/depsane/pkg/toolinfer"
	"github.com/platinummonkey/depsane/pkg/watch"
)

type watchOptions struct {
	addr     string
	debounce time.Duration
}

func newWatchCommand(opts *options) *cobra.Command {
	wopts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-analyze a package whenever its files change",
		Long: `Re-analyze a package whenever its sources, package.json, tool
configuration or depsane configuration change.

Changes to the depsane configuration file reload ignores, ignore dirs,
extensions and the output format. The listen address, debounce and logging
settings are read once at startup.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runWatch(cmd, opts, wopts, dir)
		},
	}
	cmd.Flags().StringVar(&wopts.addr, "addr", "", "Serve the latest result over HTTP on this address, e.g. :8080")
	cmd.Flags().DurationVar(&wopts.debounce, "debounce", watch.DefaultDebounce, "Quiet period before re-analyzing")
	return cmd
}

// watchedFiles are the non-source base names that trigger a new analysis
func watchedFiles(tools *toolinfer.Registry) []string {
	files := append([]string(nil), config.FileNames...)
	for _, s := range tools.All() {
		files = append(files, s.ConfigFiles()...)
	}
	return files
}

// configChanged reports whether any of the changed files is a depsane
// configuration file
func configChanged(changed []string) bool {
	for _, path := range changed {
		if slices.Contains(config.FileNames, filepath.Base(path)) {
			return true
		}
	}
	return false
}

// watchSession is the state of one watch command. The analyzer and format
// are rebuilt when the configuration file changes.
type watchSession struct {
	cmd       *cobra.Command
	opts      *options
	dir       string
	env       *runtimeEnv
	tools     *toolinfer.Registry
	extractor *jsparse.CachingExtractor
	srv       *server.Server
	out       io.Writer
	log       logrus.FieldLogger

	analyzer *analyzer.Analyzer
	format   report.Format
}

// configure applies cfg to the session
func (ws *watchSession) configure(cfg *config.Config) error {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	aopts := ws.env.analyzerOptions(cfg, ws.dir, ws.extractor)
	aopts.Tools = ws.tools
	ws.analyzer = analyzer.New(aopts)
	ws.format = format
	return nil
}

// reload re-reads the configuration when a configuration file is among
// changed. A configuration that fails to load or validate is logged and
// the previous one stays in effect.
func (ws *watchSession) reload(changed []string) {
	if !configChanged(changed) {
		return
	}
	// Cached files may fall outside the new scan.
	ws.extractor.Purge()

	cfg, err := ws.opts.load(ws.cmd, ws.dir)
	if err == nil {
		err = ws.configure(cfg)
	}
	if err != nil {
		ws.log.WithError(err).Warn("Failed to reload configuration, keeping the previous one")
		return
	}
	ws.log.Info("Configuration reloaded")
}

// analyze runs one analysis, publishes it and prints the report
func (ws *watchSession) analyze(ctx context.Context) {
	result, err := ws.analyzer.Analyze(ctx, ws.dir)
	ws.srv.Update(result, err)
	ws.env.flushMetrics()
	if err != nil {
		if ctx.Err() == nil {
			fmt.Fprintln(ws.cmd.ErrOrStderr(), err)
		}
		return
	}

	hits, misses := ws.extractor.Stats()
	ws.log.WithFields(logrus.Fields{
		"cache_hits":    hits,
		"cache_misses":  misses,
		"cache_entries": ws.extractor.Len(),
	}).Debug("Parse cache")
	if err := report.Write(ws.out, ws.format, []*analyzer.Result{result}); err != nil {
		ws.log.WithError(err).Warn("Failed to write report")
	}
}

func runWatch(cmd *cobra.Command, opts *options, wopts *watchOptions, dir string) error {
	cfg, err := opts.load(cmd, dir)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Watch.Addr = wopts.addr
	}
	if cmd.Flags().Changed("debounce") {
		cfg.Watch.Debounce = wopts.debounce
	}

	env, err := setupEnv(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.close()
	log := env.log.WithField("root", dir)

	ws := &watchSession{
		cmd:   cmd,
		opts:  opts,
		dir:   dir,
		env:   env,
		tools: toolinfer.DefaultRegistry(),
		extractor: jsparse.NewCachingExtractor(nil, jsparse.CacheConfig{
			MaxEntries: cfg.Cache.MaxEntries,
			TTL:        cfg.Cache.TTL,
		}),
		srv: server.NewServer(env.log, env.registry),
		out: cmd.OutOrStdout(),
		log: log,
	}
	if err := ws.configure(cfg); err != nil {
		return err
	}

	w, err := watch.New(dir, watch.Options{
		Debounce:   cfg.Watch.Debounce,
		Extensions: cfg.Extensions,
		Files:      watchedFiles(ws.tools),
		Logger:     env.log,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	var httpServer *http.Server
	if cfg.Watch.Addr != "" {
		httpServer = &http.Server{
			Addr:              cfg.Watch.Addr,
			Handler:           ws.srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			defer observability.RecoverPanic(log, "http server")
			log.WithField("addr", cfg.Watch.Addr).Info("Serving analysis results")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("HTTP server failed")
			}
		}()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ws.analyze(ctx)

	runErr := make(chan error, 1)
	go func() {
		defer cancel()
		runErr <- w.Run(ctx, func(ctx context.Context, changed []string) {
			log.WithField("changed", len(changed)).Info("Re-analyzing")
			ws.reload(changed)
			ws.analyze(ctx)
		})
	}()

	sm := observability.NewShutdownManager(log, httpServer, shutdownTimeout)
	shutdownErr := sm.WaitForShutdown(ctx)
	cancel()
	return errors.Join(shutdownErr, <-runErr)
}
