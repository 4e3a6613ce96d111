package toolinfer

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/depsane/pkg/manifest"
)

// Inference is one development package implied by tooling, keyed to the
// file that implied it (the manifest or a tool configuration file)
type Inference struct {
	Package string `json:"package"`
	Source  string `json:"source"`
}

// Infer inspects every script of m except "start" and returns the packages
// the invoked tools imply, sorted and without duplicates. Script packages
// are keyed to the manifest, config packages to the config file under
// m.Root. Configuration problems are logged and never fatal.
func (r *Registry) Infer(m *manifest.Manifest, log logrus.FieldLogger) []Inference {
	if log == nil {
		log = discardLogger()
	}

	seen := make(map[Inference]bool)
	var out []Inference
	add := func(pkg, source string) {
		inf := Inference{Package: pkg, Source: source}
		if pkg == "" || seen[inf] {
			return
		}
		seen[inf] = true
		out = append(out, inf)
	}

	configured := make(map[string]bool)
	for _, name := range m.ScriptNames() {
		if name == startScript {
			continue
		}
		for _, bin := range Binaries(m.Scripts[name]) {
			strategy, ok := r.Lookup(bin)
			if !ok {
				continue
			}
			log.WithFields(logrus.Fields{"script": name, "binary": bin}).Debug("Matched tool in script")
			for _, pkg := range strategy.Packages() {
				add(pkg, m.Path)
			}
			if configured[bin] {
				continue
			}
			configured[bin] = true
			for _, inf := range readConfig(m.Root, strategy, log) {
				add(inf.Package, inf.Source)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].Source < out[j].Source
	})
	return out
}

func readConfig(root string, strategy Strategy, log logrus.FieldLogger) []Inference {
	candidates := strategy.ConfigFiles()
	if len(candidates) == 0 {
		return nil
	}

	for _, candidate := range candidates {
		path := filepath.Join(root, candidate)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("Failed to read tool configuration")
			return nil
		}

		packages, err := strategy.FromConfig(path, data)
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("Failed to parse tool configuration")
			return nil
		}
		out := make([]Inference, 0, len(packages))
		for _, pkg := range packages {
			out = append(out, Inference{Package: pkg, Source: path})
		}
		return out
	}

	log.WithFields(logrus.Fields{
		"binary":     strategy.Binary(),
		"candidates": candidates,
	}).Debug("No tool configuration found")
	return nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
