package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindUp(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	writeFile(t, filepath.Join(root, "a", "marker"), "")

	dir, ok := FindUp(deep, func(d string) bool { return Exists(filepath.Join(d, "marker")) })
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "a"), dir)

	_, ok = FindUp(deep, func(string) bool { return false })
	assert.False(t, ok)
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()
	assert.True(t, HasPathPrefix("dist/a.js", "dist"))
	assert.True(t, HasPathPrefix("dist", "dist"))
	assert.False(t, HasPathPrefix("dist2/a.js", "dist"))
	assert.True(t, HasPathPrefix("/repo/app/dist/x", "/repo/app/dist"))
	assert.False(t, HasPathPrefix("/repo/app/src/x", "/repo/app/dist"))
	assert.True(t, HasPathPrefix("src/a.ts", "."))
}

func TestReplaceExt(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "src/a.js", ReplaceExt("src/a.ts", ".js"))
	assert.Equal(t, "src/a.js.map", ReplaceExt("src/a.js", ".js.map"))
	assert.Equal(t, "Makefile.js", ReplaceExt("Makefile", ".js"))
}

func TestCopyDir_SkipsSymlinksAndOverwrites(t *testing.T) {
	t.Parallel()
	src := filepath.Join(t.TempDir(), "src")
	dst := filepath.Join(t.TempDir(), "out", "dst")

	writeFile(t, filepath.Join(src, "index.js"), "new")
	writeFile(t, filepath.Join(src, "nested", "deep", "util.js"), "util")
	require.NoError(t, os.Symlink(filepath.Join(src, "index.js"), filepath.Join(src, "link.js")))
	writeFile(t, filepath.Join(dst, "index.js"), "old-and-longer")

	require.NoError(t, CopyDir(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	assert.FileExists(t, filepath.Join(dst, "nested", "deep", "util.js"))
	assert.NoFileExists(t, filepath.Join(dst, "link.js"))
}

func TestCopyDir_MissingSource(t *testing.T) {
	t.Parallel()
	err := CopyDir(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestDirSet_ConcurrentEnsure verifies that many goroutines ensuring the same
// small set of directories never fail and each directory is recorded once.
func TestDirSet_ConcurrentEnsure(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	set := NewDirSet()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir := filepath.Join(root, fmt.Sprintf("d%d", i%4), "sub")
			assert.NoError(t, set.Ensure(dir))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, set.Len())
	for i := 0; i < 4; i++ {
		assert.DirExists(t, filepath.Join(root, fmt.Sprintf("d%d", i), "sub"))
	}

	set.Reset()
	assert.Equal(t, 0, set.Len())
}
