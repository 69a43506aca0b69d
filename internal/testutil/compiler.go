package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/bndl/internal/compiler"
)

// FakeCompiler is a compiler.Compiler that echoes its input with a marker
// comment. It records every call and is safe for concurrent use.
type FakeCompiler struct {
	// FailOn makes Compile fail for inputs whose base name is listed.
	FailOn map[string]bool
	// EmptyOn makes Compile return no code for inputs whose base name is
	// listed, like a type-only file.
	EmptyOn map[string]bool
	// WithMap makes Compile return a minimal source map.
	WithMap bool
	// Delay is slept before each compile.
	Delay time.Duration

	mu       sync.Mutex
	calls    []compiler.Input
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

// Compile implements compiler.Compiler.
func (f *FakeCompiler) Compile(ctx context.Context, in compiler.Input, _ compiler.Options) (*compiler.Output, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()

	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}

	base := filepath.Base(in.Path)
	if f.FailOn[base] {
		return nil, &compiler.Error{Path: in.Path, Messages: []string{"fake failure"}}
	}
	if f.EmptyOn[base] {
		return &compiler.Output{}, nil
	}

	out := &compiler.Output{Code: []byte(fmt.Sprintf("/* compiled %s */\n%s", filepath.ToSlash(in.Path), in.Source))}
	if f.WithMap {
		out.Map = []byte(fmt.Sprintf(`{"version":3,"sources":["%s"],"names":[],"mappings":"AAAA"}`, base))
	}
	return out, nil
}

// Calls returns the slash-form paths compiled so far, sorted.
func (f *FakeCompiler) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		paths = append(paths, filepath.ToSlash(c.Path))
	}
	sort.Strings(paths)
	return paths
}

// Inputs returns a copy of every recorded input.
func (f *FakeCompiler) Inputs() []compiler.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]compiler.Input(nil), f.calls...)
}

// MaxConcurrent reports the highest number of overlapping Compile calls.
func (f *FakeCompiler) MaxConcurrent() int {
	return int(f.maxSeen.Load())
}

// IsCompiledOutput reports whether content was produced by a FakeCompiler.
func IsCompiledOutput(content string) bool {
	return strings.HasPrefix(content, "/* compiled ")
}
