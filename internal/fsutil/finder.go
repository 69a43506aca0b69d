// Package fsutil provides file system utility functions shared by the
// registry, the compile executor and the dependency bundler.
package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// FindUp walks from start towards the filesystem root and returns the first
// directory for which match reports true.
func FindUp(start string, match func(dir string) bool) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		dir = filepath.Clean(start)
	}
	for {
		if match(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// HasPathPrefix reports whether path equals base or lives underneath it.
// Both sides are compared component-wise, so "dist2" is not under "dist".
func HasPathPrefix(path, base string) bool {
	path = filepath.Clean(path)
	base = filepath.Clean(base)
	if base == "." || base == "" {
		return !filepath.IsAbs(path) && !strings.HasPrefix(path, "..")
	}
	if path == base {
		return true
	}
	sep := string(os.PathSeparator)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		base = strings.ToLower(base)
	}
	if !strings.HasSuffix(base, sep) {
		base += sep
	}
	return strings.HasPrefix(path, base)
}

// Exists reports whether anything exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReplaceExt swaps the final extension of path for ext (ext includes the dot).
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
