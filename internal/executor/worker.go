package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/bndl/internal/compiler"
	"github.com/vk/bndl/internal/ctxlog"
	"github.com/vk/bndl/internal/fsutil"
)

// worker is the processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan <-chan job, wg *sync.WaitGroup, res *collector, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range readyChan {
		workerLogger := logger.With("workerID", workerID, "file", j.rel)

		if ctx.Err() != nil {
			workerLogger.Debug("Context canceled, not starting file.")
			res.skip(j.rel)
			wg.Done()
			continue
		}

		written, err := e.compileFile(ctx, j)
		switch {
		case err != nil:
			workerLogger.Error("Failed to compile file.", "error", err)
			res.fail(j.rel, err)
		case !written:
			workerLogger.Debug("Compiler produced no code, nothing written.")
			res.skip(j.rel)
		default:
			workerLogger.Debug("Compiled file.")
			res.compiledFile(j.rel)
		}
		wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// compileFile compiles one file and writes its code and source map. It
// reports written=false when the compiler emitted no code.
func (e *Executor) compileFile(ctx context.Context, j job) (written bool, err error) {
	src, err := os.ReadFile(j.abs)
	if err != nil {
		return false, fmt.Errorf("failed to read source: %w", err)
	}

	outFile := fsutil.ReplaceExt(filepath.Join(e.outAbs, filepath.FromSlash(j.rel)), ".js")
	mapFile := outFile + ".map"

	sourceFileName, err := compiler.SourceFileName(j.abs, filepath.Dir(outFile))
	if err != nil {
		return false, fmt.Errorf("failed to compute source file name: %w", err)
	}

	out, err := e.compiler.Compile(ctx, compiler.Input{
		Path:           j.rel,
		Source:         src,
		SourceFileName: sourceFileName,
	}, e.cfg.Options)
	if err != nil {
		return false, err
	}
	if len(out.Code) == 0 {
		return false, nil
	}

	if err := e.dirs.EnsureParent(outFile); err != nil {
		return false, err
	}

	code := compiler.RewriteAliases(out.Code, filepath.Dir(j.abs), e.cfg.Options)
	if out.Map != nil {
		sourceMap, err := compiler.RewriteSourceMap(out.Map, sourceFileName, e.cfg.Options.SourceRoot)
		if err != nil {
			return false, err
		}
		code = compiler.AppendSourceMappingURL(code, filepath.Base(mapFile))
		if err := os.WriteFile(mapFile, sourceMap, 0o644); err != nil {
			return false, fmt.Errorf("failed to write source map: %w", err)
		}
	}

	if err := os.WriteFile(outFile, code, 0o644); err != nil {
		return false, fmt.Errorf("failed to write output: %w", err)
	}
	return true, nil
}
