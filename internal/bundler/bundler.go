// Package bundler copies the internal packages a package depends on into its
// output tree, so the output can run without the rest of the workspace.
package bundler

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vk/bndl/internal/ctxlog"
	"github.com/vk/bndl/internal/fsutil"
	"github.com/vk/bndl/internal/registry"
	"github.com/vk/bndl/internal/tsconfig"
	"golang.org/x/sync/errgroup"
)

// Dependencies lists the internal packages a manifest depends on.
// *registry.Registry satisfies it.
type Dependencies interface {
	UsedDependencies(ctx context.Context, manifestPath string) []registry.Package
}

// ConfigResolver resolves a package's tsconfig. *tsconfig.Resolver
// satisfies it.
type ConfigResolver interface {
	Resolve(ctx context.Context, configPath string) (*tsconfig.Resolved, error)
}

// Edge is one dependency copied into the output tree.
type Edge struct {
	Name        string
	Source      string
	Destination string
	// Compiled is true when Source is the dependency's build output rather
	// than its source directory.
	Compiled bool
}

// DependencyError is a failure isolated to one dependency.
type DependencyError struct {
	Name string
	Err  error
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("failed to bundle %s: %v", e.Name, e.Err)
}

func (e DependencyError) Unwrap() error {
	return e.Err
}

// Report summarizes a Bundle run, sorted by dependency name.
type Report struct {
	Copied []Edge
	Failed []DependencyError
}

// Bundler copies internal dependencies of the package in Cwd.
type Bundler struct {
	cwd      string
	deps     Dependencies
	resolver ConfigResolver
	limit    int
}

// New creates a Bundler for the package in cwd. limit bounds concurrent
// copies; zero or less means unbounded.
func New(cwd string, deps Dependencies, resolver ConfigResolver, limit int) *Bundler {
	return &Bundler{cwd: cwd, deps: deps, resolver: resolver, limit: limit}
}

// Bundle copies every used internal dependency into
// <cwd>/<outDir>/node_modules/<name>. Dependencies are handled
// concurrently and independently; one failure never stops the others. The
// returned error is only set when ctx is canceled.
func (b *Bundler) Bundle(ctx context.Context, outDir string) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	used := b.deps.UsedDependencies(ctx, filepath.Join(b.cwd, registry.ManifestFile))
	logger.Debug("Bundling internal dependencies.", "count", len(used))

	var (
		mu     sync.Mutex
		report = &Report{}
	)
	g, gctx := errgroup.WithContext(ctx)
	if b.limit > 0 {
		g.SetLimit(b.limit)
	}

	for _, dep := range used {
		g.Go(func() error {
			edge, err := b.bundleOne(gctx, dep, outDir)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("Failed to bundle dependency.", "name", dep.Name, "error", err)
				report.Failed = append(report.Failed, DependencyError{Name: dep.Name, Err: err})
				return nil
			}
			logger.Debug("Bundled dependency.", "name", dep.Name, "source", edge.Source, "destination", edge.Destination)
			report.Copied = append(report.Copied, edge)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Copied, func(i, j int) bool { return report.Copied[i].Name < report.Copied[j].Name })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Name < report.Failed[j].Name })
	return report, ctx.Err()
}

func (b *Bundler) bundleOne(ctx context.Context, dep registry.Package, outDir string) (Edge, error) {
	if err := ctx.Err(); err != nil {
		return Edge{}, err
	}

	cfg, err := b.resolver.Resolve(ctx, filepath.Join(dep.Dir, tsconfig.DefaultFile))
	if err != nil {
		return Edge{}, fmt.Errorf("failed to resolve configuration: %w", err)
	}

	target := outDir
	if !filepath.IsAbs(target) {
		target = filepath.Join(b.cwd, outDir)
	}
	edge := Edge{
		Name:        dep.Name,
		Source:      dep.Dir,
		Destination: filepath.Join(target, "node_modules", filepath.FromSlash(dep.Name)),
	}
	artifacts := cfg.DetermineOutDir("")
	if !filepath.IsAbs(artifacts) {
		artifacts = filepath.Join(dep.Dir, artifacts)
	}
	if fsutil.Exists(artifacts) {
		edge.Source = artifacts
		edge.Compiled = true
	}

	if err := fsutil.CopyDir(edge.Source, edge.Destination); err != nil {
		return Edge{}, err
	}
	return edge, nil
}
