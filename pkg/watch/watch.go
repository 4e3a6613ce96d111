// Package watch re-runs an action when files relevant to a package change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/depsane/pkg/manifest"
	"github.com/platinummonkey/depsane/pkg/observability"
	"github.com/platinummonkey/depsane/pkg/resolve"
)

// DefaultDebounce is the quiet period used when none is configured
const DefaultDebounce = 500 * time.Millisecond

var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
}

// ChangeFunc is called with the files changed since the previous call
type ChangeFunc func(ctx context.Context, changed []string)

// Options configures a Watcher
type Options struct {
	// Debounce is how long the tree must stay quiet before ChangeFunc runs
	Debounce time.Duration
	// Extensions are the source extensions that matter, ".js" by default
	Extensions []string
	// Files are extra base names that matter, such as tool config files.
	// package.json always matters.
	Files  []string
	Logger logrus.FieldLogger
}

// Watcher watches a package tree recursively
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	resolver *resolve.Resolver
	files    map[string]bool
	debounce time.Duration
	log      logrus.FieldLogger
}

// New starts watching every directory under root except VCS and
// node_modules directories
func New(root string, opts Options) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	files := map[string]bool{manifest.FileName: true}
	for _, f := range opts.Files {
		files[f] = true
	}

	w := &Watcher{
		root:     root,
		fsw:      fsw,
		resolver: resolve.New(opts.Extensions...),
		files:    files,
		debounce: opts.Debounce,
		log:      observability.OrDiscard(opts.Logger).WithField("root", root),
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree recursively adds all directories to the watcher
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.log.WithError(err).WithField("dir", path).Warn("Failed to walk directory")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Relevant reports whether a change to path can affect the analysis
func (w *Watcher) Relevant(path string) bool {
	if w.files[filepath.Base(path)] {
		return true
	}
	return w.resolver.IsSource(path)
}

// Run delivers debounced changes to fn until ctx is done. fn runs on the
// calling goroutine, so runs never overlap.
func (w *Watcher) Run(ctx context.Context, fn ChangeFunc) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				w.watchNewDir(event.Name)
			}
			if !w.Relevant(event.Name) {
				continue
			}
			w.log.WithFields(logrus.Fields{"file": event.Name, "op": event.Op.String()}).Debug("Change detected")
			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			clear(pending)
			w.call(ctx, fn, changed)
		}
	}
}

func (w *Watcher) call(ctx context.Context, fn ChangeFunc, changed []string) {
	defer observability.RecoverPanic(w.log, "watch change handler")
	fn(ctx, changed)
}

func (w *Watcher) watchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || skipDirs[filepath.Base(path)] {
		return
	}
	if err := w.addTree(path); err != nil {
		w.log.WithError(err).WithField("dir", path).Warn("Failed to watch new directory")
	}
}

// WatchList returns the directories currently watched
func (w *Watcher) WatchList() []string {
	list := w.fsw.WatchList()
	sort.Strings(list)
	return list
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
