package tsconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tailscale/hujson"
	"github.com/vk/bndl/internal/ctxlog"
	"golang.org/x/sync/singleflight"
)

const cacheSize = 1024

// PackageLookup resolves an internal package name to its directory.
// *registry.Registry satisfies it.
type PackageLookup interface {
	Lookup(ctx context.Context, name string) (string, bool)
}

// Resolver loads configurations and folds their extends chains. Raw file
// contents are cached by absolute path, so a Resolver can be shared by
// concurrent resolutions within one invocation.
type Resolver struct {
	cwd      string
	packages PackageLookup

	cache *lru.Cache[string, []byte]
	group singleflight.Group
}

// NewResolver creates a Resolver rooted at cwd. packages may be nil, in which
// case configurations outside the filesystem layout are never found.
func NewResolver(cwd string, packages PackageLookup) *Resolver {
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &Resolver{cwd: cwd, packages: packages, cache: cache}
}

// Resolve loads the configuration at configPath and merges every
// configuration it extends, child values winning. A path that cannot be
// found, either on disk or inside an internal package, resolves to an empty
// configuration.
func (r *Resolver) Resolve(ctx context.Context, configPath string) (*Resolved, error) {
	logger := ctxlog.FromContext(ctx)
	if configPath == "" {
		configPath = DefaultFile
	}

	var (
		chain   []*ProjectConfig
		files   []string
		visited = make(map[string]bool)
		next    = configPath
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, path, err := r.fetch(ctx, next)
		if err != nil {
			return nil, err
		}
		key := path
		if key == "" {
			key = r.abs(next)
		}
		if visited[key] {
			return nil, fmt.Errorf("%w: %s", ErrExtendsCycle, key)
		}
		visited[key] = true

		cfg, err := Parse(data)
		if err != nil {
			return nil, &ConfigParseError{Path: key, Err: err}
		}
		chain = append(chain, cfg)
		if path != "" {
			files = append(files, path)
		}

		extends := String(cfg.Extends)
		if extends == "" {
			break
		}
		next = r.extendsTarget(key, extends)
		logger.Debug("Following extends.", "from", key, "extends", extends)
	}

	merged := chain[len(chain)-1]
	for i := len(chain) - 2; i >= 0; i-- {
		merged = Merge(chain[i], merged)
	}

	return &Resolved{ProjectConfig: *merged, Path: r.abs(configPath), Files: files}, nil
}

// extendsTarget maps an "extends" value to the next path to fetch. Values
// starting with "." are relative to the extending file; anything else is a
// path or an internal package specifier.
func (r *Resolver) extendsTarget(from, extends string) string {
	if strings.HasPrefix(extends, ".") {
		return filepath.Join(filepath.Dir(from), filepath.FromSlash(extends))
	}
	return extends
}

// fetch returns the content for path and the absolute file it came from.
// When path does not exist its trailing segments are stripped one at a time
// until the remainder names an internal package, and the stripped segments
// are re-rooted inside that package. A bare package name maps to its
// tsconfig.json. An empty path means nothing was found and data is the
// empty configuration.
func (r *Resolver) fetch(ctx context.Context, path string) (data []byte, file string, err error) {
	abs := r.abs(path)
	data, err = r.read(abs)
	if err == nil {
		return data, abs, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to read %s: %w", abs, err)
	}

	if target, ok := r.locate(ctx, path); ok {
		data, err = r.read(target)
		if err == nil {
			ctxlog.FromContext(ctx).Debug("Resolved configuration through workspace package.", "path", path, "file", target)
			return data, target, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("failed to read %s: %w", target, err)
		}
	}

	ctxlog.FromContext(ctx).Debug("Configuration not found, using empty options.", "path", path)
	return []byte(`{"compilerOptions":{}}`), "", nil
}

func (r *Resolver) locate(ctx context.Context, path string) (string, bool) {
	if r.packages == nil || filepath.IsAbs(path) {
		return "", false
	}
	spec := strings.TrimSuffix(filepath.ToSlash(path), "/")

	if dir, ok := r.packages.Lookup(ctx, spec); ok {
		return filepath.Join(dir, DefaultFile), true
	}

	var stripped []string
	for {
		idx := strings.LastIndex(spec, "/")
		if idx <= 0 {
			return "", false
		}
		stripped = append([]string{spec[idx+1:]}, stripped...)
		spec = spec[:idx]
		if dir, ok := r.packages.Lookup(ctx, spec); ok {
			return filepath.Join(append([]string{dir}, stripped...)...), true
		}
	}
}

func (r *Resolver) read(abs string) ([]byte, error) {
	if data, ok := r.cache.Get(abs); ok {
		return data, nil
	}
	v, err, _ := r.group.Do(abs, func() (any, error) {
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, err
		}
		r.cache.Add(abs, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *Resolver) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.cwd, path)
}

// Parse decodes a single tsconfig.json without following extends. Comments
// and trailing commas are accepted.
func Parse(data []byte) (*ProjectConfig, error) {
	// Standardize rewrites its input; cached content is shared.
	std, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
