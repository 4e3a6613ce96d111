package resolve

import (
	"os"
	"path/filepath"
	"strings"
)

// Kind classifies a resolved module reference
type Kind int

const (
	// Unresolved is a local reference with no file behind it, or an empty specifier
	Unresolved Kind = iota
	// Package is an external npm package
	Package
	// Local is a source file inside the package
	Local
	// Builtin is a Node.js core module
	Builtin
	// Asset is a local non-source file such as JSON data or a native addon
	Asset
)

func (k Kind) String() string {
	switch k {
	case Package:
		return "package"
	case Local:
		return "local"
	case Builtin:
		return "builtin"
	case Asset:
		return "asset"
	default:
		return "unresolved"
	}
}

// Resolution is the outcome of resolving one specifier
type Resolution struct {
	Kind Kind
	// Package is the normalized package name, set for Package
	Package string
	// Path is the absolute file path, set for Local and Asset and, for
	// Unresolved local references, the path that was looked for
	Path string
}

// DefaultExtensions are the source extensions used when none are configured
var DefaultExtensions = []string{".js"}

var assetExtensions = map[string]bool{
	".json":  true,
	".node":  true,
	".css":   true,
	".scss":  true,
	".less":  true,
	".html":  true,
	".txt":   true,
	".md":    true,
	".svg":   true,
	".png":   true,
	".jpg":   true,
	".jpeg":  true,
	".gif":   true,
	".webp":  true,
	".ico":   true,
	".woff":  true,
	".woff2": true,
	".ttf":   true,
	".wasm":  true,
}

// Resolver maps specifiers to packages and files. It only stats the
// filesystem and keeps no state between calls.
type Resolver struct {
	extensions []string
}

// New creates a resolver for the given source extensions. With none it
// uses DefaultExtensions.
func New(extensions ...string) *Resolver {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, DefaultExtensions...)
	}
	return &Resolver{extensions: exts}
}

// IsSource reports whether path carries one of the source extensions
func (r *Resolver) IsSource(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range r.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// IsLocal reports whether spec refers to a file rather than a package
func IsLocal(spec string) bool {
	return strings.HasPrefix(spec, ".") || filepath.IsAbs(spec)
}

// Resolve classifies spec as written in a file located in dir
func (r *Resolver) Resolve(spec, dir string) Resolution {
	if spec == "" {
		return Resolution{Kind: Unresolved}
	}
	if IsLocal(spec) {
		return r.resolveLocal(spec, dir, false)
	}
	if IsBuiltin(spec) {
		return Resolution{Kind: Builtin}
	}
	return Resolution{Kind: Package, Package: PackageName(spec)}
}

// ResolveEntry resolves a manifest entry point (main or a bin value)
// relative to root. Unlike Resolve it accepts an existing file without a
// source extension, which is common for bin scripts.
func (r *Resolver) ResolveEntry(root, entry string) Resolution {
	if entry == "" {
		return Resolution{Kind: Unresolved}
	}
	return r.resolveLocal(entry, root, true)
}

func (r *Resolver) resolveLocal(spec, dir string, entry bool) Resolution {
	target := spec
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	target = filepath.Clean(target)

	if assetExtensions[strings.ToLower(filepath.Ext(target))] {
		return Resolution{Kind: Asset, Path: target}
	}

	for _, candidate := range r.candidates(target) {
		if isFile(candidate) {
			return Resolution{Kind: Local, Path: candidate}
		}
	}
	if entry && isFile(target) {
		return Resolution{Kind: Local, Path: target}
	}
	return Resolution{Kind: Unresolved, Path: target}
}

func (r *Resolver) candidates(target string) []string {
	out := make([]string, 0, 1+2*len(r.extensions))
	if r.IsSource(target) {
		out = append(out, target)
	}
	for _, ext := range r.extensions {
		out = append(out, target+ext)
	}
	for _, ext := range r.extensions {
		out = append(out, filepath.Join(target, "index"+ext))
	}
	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// PackageName normalizes a bare specifier to the package that provides it:
// "@ns/pkg/sub" is "@ns/pkg", "pkg/sub" is "pkg" and a lone "@ns" is kept.
func PackageName(spec string) string {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}
