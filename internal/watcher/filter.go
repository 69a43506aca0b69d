package watcher

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/bndl/internal/fsutil"
)

// toolCacheDir is the build cache directory of the task runner commonly
// used in these workspaces.
const toolCacheDir = ".turbo"

// Filter decides which filesystem events trigger a rebuild.
type Filter struct {
	// OutDirs are the absolute directories the build writes to, such as the
	// output and declaration directories. Events beneath them are the
	// build's own writes.
	OutDirs []string
	// Ignore lists extra path fragments to skip, in slash form.
	Ignore []string
}

// Accept reports whether ev should trigger a rebuild. Only creations and
// writes qualify; metadata-only changes, removals and renames never do.
func (f Filter) Accept(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	return !f.Ignored(ev.Name)
}

// Ignored reports whether path lies somewhere rebuilds must not be
// triggered from.
func (f Filter) Ignored(path string) bool {
	for _, dir := range f.OutDirs {
		if dir != "" && fsutil.HasPathPrefix(path, dir) {
			return true
		}
	}

	slashed := filepath.ToSlash(path)
	if strings.Contains(slashed, "node_modules") || hasSegment(slashed, toolCacheDir) {
		return true
	}
	for _, fragment := range f.Ignore {
		if fragment != "" && strings.Contains(slashed, fragment) {
			return true
		}
	}
	return false
}

func hasSegment(slashed, name string) bool {
	for _, seg := range strings.Split(slashed, "/") {
		if seg == name {
			return true
		}
	}
	return false
}
