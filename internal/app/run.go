package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/bndl/internal/bundler"
	"github.com/vk/bndl/internal/compiler"
	"github.com/vk/bndl/internal/ctxlog"
	"github.com/vk/bndl/internal/executor"
	"github.com/vk/bndl/internal/glob"
	"github.com/vk/bndl/internal/publish"
	"github.com/vk/bndl/internal/tsconfig"
)

// project is a resolved configuration and everything derived from it.
type project struct {
	config  *tsconfig.Resolved
	outDir  string
	globs   *glob.Pair
	options compiler.Options
}

func (a *App) loadProject(ctx context.Context) (*project, error) {
	resolved, err := a.resolver.Resolve(ctx, a.cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration %s: %w", a.cfg.Project, err)
	}
	outDir := resolved.DetermineOutDir(a.cfg.OutDir)

	globs, err := glob.Build(resolved.Include, resolved.Exclude, a.cwd)
	if err != nil {
		return nil, fmt.Errorf("invalid include/exclude in %s: %w", a.cfg.Project, err)
	}

	ctxlog.FromContext(ctx).Debug("Configuration resolved.",
		"path", resolved.Path,
		"chain", resolved.Files,
		"out_dir", outDir,
		"include", globs.Include.Len(),
		"exclude", globs.Exclude.Len(),
	)
	return &project{
		config:  resolved,
		outDir:  outDir,
		globs:   globs,
		options: compiler.FromResolved(&resolved.ProjectConfig, a.cwd, outDir, a.cfg.Minify),
	}, nil
}

// declarationDir returns where declarations are written, and whether they
// are generated at all.
func (p *project) declarationDir() (string, bool) {
	if !tsconfig.Bool(p.config.Options().Declaration) {
		return "", false
	}
	return p.config.DeclarationDir(p.outDir), true
}

// newExecutor configures the compile orchestrator for p.
func (a *App) newExecutor(p *project) *executor.Executor {
	opts := p.config.Options()
	cfg := executor.Config{
		Cwd:         a.cwd,
		OutDir:      p.outDir,
		Options:     p.options,
		Globs:       p.globs,
		ResolveJSON: tsconfig.Bool(opts.ResolveJSONModule),
		Workers:     a.settings.Workers,
	}
	if dir, ok := p.declarationDir(); ok {
		gen := compiler.NewDeclarationGenerator(a.settings.DeclarationsCommand, a.errW)
		gen.Dir = a.cwd
		cfg.Declarations = gen
		cfg.Project = a.cfg.Project
		cfg.DeclarationDir = dir
	}
	return executor.New(a.compiler, cfg)
}

func (a *App) newBundler() *bundler.Bundler {
	return bundler.New(a.cwd, a.registry, a.resolver, a.settings.Workers)
}

// build is the one-shot pipeline: clean, compile, bundle, publish.
func (a *App) build(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	p, err := a.loadProject(ctx)
	if err != nil {
		return err
	}

	logger.Info("🚀 Starting build...", "input", a.cfg.Input, "out_dir", p.outDir)
	if err := a.compileAndBundle(ctx, p, a.cfg.Clean, !a.cfg.NoBundle); err != nil {
		return err
	}

	if a.cfg.Publish {
		if err := a.publish(ctx, p.outDir); err != nil {
			return err
		}
	}
	logger.Info("🏁 Build finished.")
	return nil
}

// compileAndBundle runs one full build of the configured input. Per-file
// and per-dependency failures are logged; only a failed clean, an unusable
// input or cancellation are returned.
func (a *App) compileAndBundle(ctx context.Context, p *project, clean, bundle bool) error {
	logger := ctxlog.FromContext(ctx)

	if clean {
		if err := executor.Clean(ctx, a.cwd, p.outDir); err != nil {
			return err
		}
	}

	res, err := a.newExecutor(p).Run(ctx, a.cfg.Input)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	a.logResult(ctx, res)

	if bundle {
		report, err := a.newBundler().Bundle(ctx, p.outDir)
		if err != nil {
			return fmt.Errorf("bundling failed: %w", err)
		}
		logger.Info("Bundled internal dependencies.", "copied", len(report.Copied), "failed", len(report.Failed))
	}
	return nil
}

func (a *App) logResult(ctx context.Context, res *executor.Result) {
	logger := ctxlog.FromContext(ctx)
	for _, f := range res.Failed {
		logger.Error("Failed to compile file.", "path", f.Path, "error", f.Err)
	}
	attrs := []any{
		"compiled", len(res.Compiled),
		"copied", len(res.Copied),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
	}
	if !res.OK() {
		logger.Warn("Compilation finished with errors.", attrs...)
		return
	}
	logger.Info("Compilation finished.", attrs...)
}

// onlyBundle skips compilation and copies internal dependencies into an
// already built output tree.
func (a *App) onlyBundle(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	resolved, err := a.resolver.Resolve(ctx, a.cfg.Project)
	if err != nil {
		return fmt.Errorf("failed to load configuration %s: %w", a.cfg.Project, err)
	}
	outDir := resolved.DetermineOutDir(a.cfg.OutDir)

	report, err := a.newBundler().Bundle(ctx, outDir)
	if err != nil {
		return fmt.Errorf("bundling failed: %w", err)
	}
	logger.Info("🏁 Bundled internal dependencies.", "copied", len(report.Copied), "failed", len(report.Failed))
	return nil
}

func (a *App) publish(ctx context.Context, outDir string) error {
	if err := a.settings.Publish.Validate(); err != nil {
		return fmt.Errorf("cannot publish: %w", err)
	}
	pub, err := publish.New(a.settings.Publish)
	if err != nil {
		return fmt.Errorf("cannot publish: %w", err)
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(a.cwd, outDir)
	}
	if _, err := pub.Upload(ctx, outDir); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}
