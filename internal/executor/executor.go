// Package executor compiles an input path into the output tree. Files are
// independent units of work spread over a bounded pool of workers.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/vk/bndl/internal/compiler"
	"github.com/vk/bndl/internal/ctxlog"
	"github.com/vk/bndl/internal/fsutil"
	"github.com/vk/bndl/internal/glob"
)

// DeclarationGenerator writes declaration files for a project.
// *compiler.DeclarationGenerator satisfies it.
type DeclarationGenerator interface {
	Generate(ctx context.Context, project, outDir string) error
}

// Config describes one build invocation.
type Config struct {
	// Cwd is the package directory; relative paths are resolved against it.
	Cwd string
	// OutDir receives compiled files, mirroring their path relative to Cwd.
	OutDir string
	// Options are passed to the compiler for every file.
	Options compiler.Options
	// Globs decide which files take part.
	Globs *glob.Pair
	// ResolveJSON copies included .json files into OutDir.
	ResolveJSON bool
	// Workers bounds concurrent compiles; zero means GOMAXPROCS.
	Workers int

	// Declarations runs after the batch when non-nil.
	Declarations DeclarationGenerator
	// Project is the configuration passed to Declarations.
	Project string
	// DeclarationDir is where declarations are written; defaults to OutDir.
	DeclarationDir string
}

// FileError is a failure isolated to one file.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Result summarizes a Run. All paths are relative to Cwd in slash form and
// sorted.
type Result struct {
	Compiled []string
	Copied   []string
	// Skipped lists files that produced no output or were never started
	// because the context was canceled.
	Skipped []string
	Failed  []FileError
	// DeclarationErr is set when the declaration generator failed.
	DeclarationErr error
}

// OK reports whether every file and the declaration step succeeded.
func (r *Result) OK() bool {
	return len(r.Failed) == 0 && r.DeclarationErr == nil
}

// Executor runs builds for one Config. It can be reused for several runs,
// for example one per watch event.
type Executor struct {
	cfg      Config
	compiler compiler.Compiler
	dirs     *fsutil.DirSet

	outAbs string
}

// New creates an Executor.
func New(c compiler.Compiler, cfg Config) *Executor {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Globs == nil {
		cfg.Globs = &glob.Pair{}
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "dist"
	}
	if cfg.DeclarationDir == "" {
		cfg.DeclarationDir = cfg.OutDir
	}
	return &Executor{
		cfg:      cfg,
		compiler: c,
		dirs:     fsutil.NewDirSet(),
		outAbs:   absUnder(cfg.Cwd, cfg.OutDir),
	}
}

// job is one file to compile.
type job struct {
	rel string
	abs string
}

// Run compiles input, a file or a directory relative to Cwd. Per-file
// failures are reported in the Result; the returned error is reserved for
// problems with the input itself and for cancellation.
func (e *Executor) Run(ctx context.Context, input string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	rel, abs := e.normalize(input)
	// The output tree may have been removed since the last run.
	e.dirs.Reset()

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input %s: %w", abs, err)
	}

	res := &collector{}
	var jobs []job
	switch {
	case info.IsDir():
		jobs = e.walk(ctx, abs, res)
	case e.inPrunedDir(abs):
		logger.Debug("File lies in a pruned directory, ignoring.", "path", rel)
	default:
		jobs = e.classify(ctx, rel, abs, res)
	}

	logger.Debug("Collected build work.", "input", rel, "files", len(jobs), "workers", e.cfg.Workers)
	e.compileAll(ctx, jobs, res)

	result := res.result()
	if e.cfg.Declarations != nil && e.cfg.Project != "" && ctx.Err() == nil {
		declDir := absUnder(e.cfg.Cwd, e.cfg.DeclarationDir)
		if err := e.cfg.Declarations.Generate(ctx, e.cfg.Project, declDir); err != nil {
			logger.Error("Declaration generation failed.", "error", err)
			result.DeclarationErr = err
		}
	}

	logger.Debug("Build finished.",
		"compiled", len(result.Compiled),
		"copied", len(result.Copied),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, ctx.Err()
}

// walk collects eligible files under root, copying JSON assets as it goes.
func (e *Executor) walk(ctx context.Context, root string, res *collector) []job {
	logger := ctxlog.FromContext(ctx)
	var jobs []job

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel := e.rel(path)
		if d.IsDir() {
			if path == root {
				return nil
			}
			if e.pruned(path, rel) {
				logger.Debug("Pruning directory.", "dir", rel)
				return filepath.SkipDir
			}
			return nil
		}

		jobs = append(jobs, e.classify(ctx, rel, path, res)...)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("Failed to walk input.", "root", root, "error", err)
		res.fail(e.rel(root), err)
	}
	return jobs
}

// pruned reports whether the directory at path is never descended into.
func (e *Executor) pruned(path, rel string) bool {
	return filepath.Base(path) == "node_modules" || path == e.outAbs || e.cfg.Globs.IsExcluded(rel)
}

// inPrunedDir reports whether any directory between Cwd and the file at abs
// is pruned, so that a single file is selected exactly as a walk would.
func (e *Executor) inPrunedDir(abs string) bool {
	cwd := absUnder(e.cfg.Cwd, ".")
	for dir := filepath.Dir(abs); dir != cwd && fsutil.HasPathPrefix(dir, cwd); dir = filepath.Dir(dir) {
		if e.pruned(dir, e.rel(dir)) {
			return true
		}
	}
	return false
}

// classify routes a single file: compile, copy or ignore.
func (e *Executor) classify(ctx context.Context, rel, abs string, res *collector) []job {
	if e.cfg.Globs.IsEligible(rel) {
		return []job{{rel: rel, abs: abs}}
	}
	if e.cfg.ResolveJSON && filepath.Ext(rel) == ".json" &&
		e.cfg.Globs.Include.Match(rel) && !e.cfg.Globs.IsExcluded(rel) {
		e.copyAsset(ctx, rel, abs, res)
	}
	return nil
}

func (e *Executor) copyAsset(ctx context.Context, rel, abs string, res *collector) {
	dst := filepath.Join(e.outAbs, filepath.FromSlash(rel))
	if err := e.dirs.EnsureParent(dst); err != nil {
		res.fail(rel, err)
		return
	}
	if err := fsutil.CopyFile(abs, dst); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to copy asset.", "path", rel, "error", err)
		res.fail(rel, err)
		return
	}
	res.copied(rel)
}

// compileAll feeds jobs to the worker pool and waits for all of them.
func (e *Executor) compileAll(ctx context.Context, jobs []job, res *collector) {
	if len(jobs) == 0 {
		return
	}
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan job, len(jobs))
	for _, j := range jobs {
		readyChan <- j
	}
	close(readyChan)

	workers := min(e.cfg.Workers, len(jobs))
	var wg sync.WaitGroup
	wg.Add(len(jobs))

	logger.Debug("Starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		go e.worker(ctx, readyChan, &wg, res, i)
	}
	wg.Wait()
}

func (e *Executor) normalize(input string) (rel, abs string) {
	if input == "" {
		input = "."
	}
	abs = absUnder(e.cfg.Cwd, input)
	return e.rel(abs), abs
}

// rel returns path relative to Cwd in slash form, or the cleaned path when
// it lies outside Cwd.
func (e *Executor) rel(path string) string {
	if r, err := filepath.Rel(absUnder(e.cfg.Cwd, "."), path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func absUnder(cwd, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if cwd == "" {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
	}
	return filepath.Join(cwd, p)
}

// collector gathers per-file outcomes from concurrent workers.
type collector struct {
	mu       sync.Mutex
	compiled []string
	copiedL  []string
	skipped  []string
	failed   []FileError
}

func (c *collector) compiledFile(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiled = append(c.compiled, rel)
}

func (c *collector) copied(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copiedL = append(c.copiedL, rel)
}

func (c *collector) skip(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped = append(c.skipped, rel)
}

func (c *collector) fail(rel string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = append(c.failed, FileError{Path: rel, Err: err})
}

func (c *collector) result() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &Result{
		Compiled: append([]string(nil), c.compiled...),
		Copied:   append([]string(nil), c.copiedL...),
		Skipped:  append([]string(nil), c.skipped...),
		Failed:   append([]FileError(nil), c.failed...),
	}
	sort.Strings(r.Compiled)
	sort.Strings(r.Copied)
	sort.Strings(r.Skipped)
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Path < r.Failed[j].Path })
	return r
}
