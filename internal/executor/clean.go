package executor

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/bndl/internal/ctxlog"
	"github.com/vk/bndl/internal/fsutil"
)

// Clean removes outDir (relative to cwd) and everything in it. It refuses to
// remove cwd itself or any of its ancestors.
func Clean(ctx context.Context, cwd, outDir string) error {
	if outDir == "" {
		return nil
	}
	target := absUnder(cwd, outDir)
	base := absUnder(cwd, ".")
	if fsutil.HasPathPrefix(base, target) {
		return fmt.Errorf("refusing to clean %s: it contains the working directory", target)
	}

	if !fsutil.Exists(target) {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Cleaning output directory.", "dir", target)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to clean %s: %w", target, err)
	}
	return nil
}
