package registry

import (
	"context"
	"errors"
	"maps"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vk/bndl/internal/ctxlog"
	"github.com/vk/bndl/internal/fsutil"
)

// ErrWorkspaceRootNotFound is returned when no ancestor of the working
// directory declares workspaces. Callers treat it as "no internal packages".
var ErrWorkspaceRootNotFound = errors.New("unable to find workspace root")

// Package is one internal package of the workspace.
type Package struct {
	Name string
	Dir  string
}

// Registry holds the workspace root and package index for a single
// invocation. Both are computed lazily, at most once.
type Registry struct {
	cwd string

	rootOnce sync.Once
	root     string
	rootErr  error

	indexOnce sync.Once
	packages  map[string]string
}

// New creates a Registry that discovers the workspace upwards from cwd.
func New(cwd string) *Registry {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		abs = filepath.Clean(cwd)
	}
	return &Registry{cwd: abs}
}

// NewWithPackages creates a Registry with a fixed index and no discovery.
// It is used for tests and for callers that already know the layout.
func NewWithPackages(root string, packages map[string]string) *Registry {
	r := &Registry{root: root, packages: maps.Clone(packages)}
	if r.packages == nil {
		r.packages = make(map[string]string)
	}
	r.rootOnce.Do(func() {})
	r.indexOnce.Do(func() {})
	return r
}

// Root returns the workspace root, walking upwards from the working
// directory on the first call.
func (r *Registry) Root(ctx context.Context) (string, error) {
	r.rootOnce.Do(func() {
		logger := ctxlog.FromContext(ctx)
		root, ok := fsutil.FindUp(r.cwd, func(dir string) bool {
			m, err := loadManifestOrEmpty(filepath.Join(dir, ManifestFile))
			if err != nil {
				logger.Debug("Ignoring unreadable manifest.", "dir", dir, "error", err)
			}
			return m.IsWorkspaceRoot()
		})
		if !ok {
			r.rootErr = ErrWorkspaceRootNotFound
			return
		}
		logger.Debug("Found workspace root.", "root", root)
		r.root = root
	})
	return r.root, r.rootErr
}

// Packages returns a copy of the package index (name → directory). Outside a
// workspace the index is empty.
func (r *Registry) Packages(ctx context.Context) map[string]string {
	r.ensureIndex(ctx)
	return maps.Clone(r.packages)
}

// Lookup returns the directory of the internal package called name.
func (r *Registry) Lookup(ctx context.Context, name string) (string, bool) {
	r.ensureIndex(ctx)
	dir, ok := r.packages[name]
	return dir, ok
}

// UsedDependencies returns the internal packages that the manifest at
// manifestPath lists under "dependencies", sorted by name.
func (r *Registry) UsedDependencies(ctx context.Context, manifestPath string) []Package {
	logger := ctxlog.FromContext(ctx)
	r.ensureIndex(ctx)

	m, err := loadManifestOrEmpty(manifestPath)
	if err != nil {
		logger.Debug("Ignoring unreadable manifest.", "path", manifestPath, "error", err)
	}

	var used []Package
	for name := range m.Dependencies {
		if dir, ok := r.packages[name]; ok {
			used = append(used, Package{Name: name, Dir: dir})
		}
	}
	sort.Slice(used, func(i, j int) bool { return used[i].Name < used[j].Name })

	logger.Debug("Resolved internal dependencies.", "package", m.Name, "count", len(used))
	return used
}

func (r *Registry) ensureIndex(ctx context.Context) {
	r.indexOnce.Do(func() {
		logger := ctxlog.FromContext(ctx)
		root, err := r.Root(ctx)
		if err != nil {
			logger.Debug("No workspace found, internal package index is empty.", "cwd", r.cwd, "error", err)
			r.packages = make(map[string]string)
			return
		}
		r.packages = IndexPackages(ctx, root)
	})
}
