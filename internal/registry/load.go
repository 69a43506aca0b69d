package registry

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/vk/bndl/internal/ctxlog"
)

// prunedDirs are never descended into while indexing.
var prunedDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
}

// IndexPackages walks root once and maps every package.json "name" to the
// directory holding it. Symlinks are never followed and unreadable entries
// are skipped.
func IndexPackages(ctx context.Context, root string) map[string]string {
	logger := ctxlog.FromContext(ctx)
	packages := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("Error while walking workspace.", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			if path != root && prunedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ManifestFile {
			return nil
		}

		m, err := loadManifestOrEmpty(path)
		if err != nil {
			logger.Debug("Ignoring unreadable manifest.", "path", path, "error", err)
		}
		if m.Name == "" {
			return nil
		}
		dir := filepath.Dir(path)
		if prev, dup := packages[m.Name]; dup {
			logger.Warn("Duplicate package name in workspace, keeping the last one.", "name", m.Name, "previous", prev, "current", dir)
		}
		packages[m.Name] = dir
		return nil
	})
	if err != nil {
		logger.Debug("Workspace walk aborted.", "root", root, "error", err)
	}

	logger.Debug("Identified workspace packages.", "count", len(packages))
	return packages
}
