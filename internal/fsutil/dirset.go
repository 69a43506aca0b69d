package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DirSet remembers which directories are known to exist so that concurrent
// writers create each output directory exactly once.
type DirSet struct {
	mu   sync.Mutex
	dirs map[string]struct{}
}

// NewDirSet creates an empty DirSet.
func NewDirSet() *DirSet {
	return &DirSet{dirs: make(map[string]struct{})}
}

// Ensure creates dir (and its parents) unless it was already created through
// this set. The check and the insert happen under one lock; a failed creation
// is not recorded so a later caller retries it.
func (s *DirSet) Ensure(dir string) error {
	dir = filepath.Clean(dir)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	s.dirs[dir] = struct{}{}
	return nil
}

// EnsureParent is Ensure for the directory containing file.
func (s *DirSet) EnsureParent(file string) error {
	return s.Ensure(filepath.Dir(file))
}

// Reset forgets every recorded directory, e.g. after the output tree was
// cleaned.
func (s *DirSet) Reset() {
	s.mu.Lock()
	s.dirs = make(map[string]struct{})
	s.mu.Unlock()
}

// Len returns the number of recorded directories.
func (s *DirSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirs)
}
