package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bndl/internal/tsconfig"
)

func ptr[T any](v T) *T { return &v }

func TestFromResolved(t *testing.T) {
	t.Parallel()
	cfg := &tsconfig.ProjectConfig{CompilerOptions: &tsconfig.CompilerOptions{
		Target:                 ptr("ES2020"),
		Module:                 ptr("ESNext"),
		SourceMap:              ptr(true),
		InlineSources:          ptr(true),
		ExperimentalDecorators: ptr(true),
		RemoveComments:         ptr(true),
		BaseURL:                ptr("./src"),
		Paths:                  map[string][]string{"@/*": {"*"}},
	}}

	opts := FromResolved(cfg, "/work", "dist", true)

	assert.Equal(t, Options{
		Target:               "es2020",
		Module:               ModuleESM,
		SourceMaps:           SourceMapExternal,
		InlineSourcesContent: true,
		Decorators:           true,
		KeepComments:         false,
		Minify:               true,
		OutDir:               "dist",
		BaseURL:              filepath.Join("/work", "src"),
		Paths:                map[string][]string{"@/*": {"*"}},
	}, opts)
}

func TestFromResolved_Defaults(t *testing.T) {
	t.Parallel()
	opts := FromResolved(&tsconfig.ProjectConfig{}, "/work", "dist", false)

	assert.Equal(t, "esnext", opts.Target)
	assert.Equal(t, ModuleCommonJS, opts.Module)
	assert.Equal(t, SourceMapNone, opts.SourceMaps)
	assert.True(t, opts.KeepComments)
	assert.Empty(t, opts.BaseURL)
	assert.Nil(t, opts.Paths)

	inline := FromResolved(&tsconfig.ProjectConfig{CompilerOptions: &tsconfig.CompilerOptions{
		SourceMap:       ptr(true),
		InlineSourceMap: ptr(true),
	}}, "", "dist", false)
	assert.Equal(t, SourceMapInline, inline.SourceMaps, "inline wins over external")
}

func TestOptions_JSONOmitsEmpty(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(Options{Target: "es2022", Module: ModuleCommonJS})
	require.NoError(t, err)
	assert.JSONEq(t, `{"target":"es2022","module":"commonjs"}`, string(b))
}

func TestRewriteSourceMap(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"version":3,"sources":["input.ts","other.ts"],"names":[],"mappings":"AAAA","x_custom":1}`)

	out, err := RewriteSourceMap(raw, "../src/a.ts", "/root")
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, []any{"../src/a.ts", "other.ts"}, m["sources"])
	assert.Equal(t, "/root", m["sourceRoot"])
	assert.EqualValues(t, 1, m["x_custom"])
}

func TestRewriteSourceMap_NoMappings(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"version":3,"sources":["input.ts"],"mappings":""}`)

	out, err := RewriteSourceMap(raw, "../src/a.ts", "")
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))

	_, err = RewriteSourceMap([]byte("not json"), "a", "")
	assert.Error(t, err)
}

func TestAppendSourceMappingURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "x;\n//# sourceMappingURL=a.js.map", string(AppendSourceMappingURL([]byte("x;"), "a.js.map")))
}

func TestSourceFileName(t *testing.T) {
	t.Parallel()
	name, err := SourceFileName("/work/src/lib/a.ts", "/work/dist/src/lib")
	require.NoError(t, err)
	assert.Equal(t, "../../../src/lib/a.ts", name)
}

func TestEsbuild_Compile(t *testing.T) {
	t.Parallel()
	c := NewEsbuild()
	in := Input{
		Path:           "src/a.ts",
		Source:         []byte("export const answer: number = 42;\n"),
		SourceFileName: "../../src/a.ts",
	}

	out, err := c.Compile(context.Background(), in, Options{Target: "es2020", Module: ModuleESM, SourceMaps: SourceMapExternal})

	require.NoError(t, err)
	assert.Contains(t, string(out.Code), "export const answer = 42")
	require.NotNil(t, out.Map)
	var m struct {
		Sources []string `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(out.Map, &m))
	assert.Equal(t, []string{"../../src/a.ts"}, m.Sources)
}

func TestEsbuild_TypeOnlyFileIsEmpty(t *testing.T) {
	t.Parallel()
	out, err := NewEsbuild().Compile(context.Background(), Input{
		Path:   "types.ts",
		Source: []byte("export interface A { b: string }\n"),
	}, Options{Module: ModuleESM})

	require.NoError(t, err)
	assert.Empty(t, bytes.TrimSpace(out.Code))
	assert.Nil(t, out.Map)
}

func TestEsbuild_SyntaxError(t *testing.T) {
	t.Parallel()
	_, err := NewEsbuild().Compile(context.Background(), Input{
		Path:   "broken.ts",
		Source: []byte("const = ;"),
	}, Options{})

	var compileErr *Error
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "broken.ts", compileErr.Path)
	assert.NotEmpty(t, compileErr.Messages)
}

func TestEsbuild_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEsbuild().Compile(ctx, Input{Path: "a.ts"}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRewriteAliases(t *testing.T) {
	t.Parallel()
	opts := Options{
		BaseURL: "/work/app",
		Paths: map[string][]string{
			"@/*":        {"src/*"},
			"@ui/*":      {"src/components/ui/*"},
			"config":     {"src/config.ts"},
			"@generated": {},
		},
	}
	dir := "/work/app/src/pages"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "wildcard", in: `import { a } from "@/lib/a";`, want: `import { a } from "../lib/a";`},
		{name: "longest prefix wins", in: `export * from "@ui/button";`, want: `export * from "../components/ui/button";`},
		{name: "exact with extension", in: `const c = require("config");`, want: `const c = require("../config");`},
		{name: "dynamic import", in: `await import('@/pages/b');`, want: `await import('./b');`},
		{name: "side effect import", in: `import "@/styles";`, want: `import "../styles";`},
		{name: "package untouched", in: `import x from "left-pad";`, want: `import x from "left-pad";`},
		{name: "relative untouched", in: `import x from "./x";`, want: `import x from "./x";`},
		{name: "empty targets untouched", in: `import g from "@generated";`, want: `import g from "@generated";`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(RewriteAliases([]byte(tt.in), dir, opts)))
		})
	}
}

func TestRewriteAliases_NoPaths(t *testing.T) {
	t.Parallel()
	code := []byte(`import { a } from "@/lib/a";`)
	assert.Equal(t, code, RewriteAliases(code, "/work/app/src", Options{BaseURL: "/work/app"}))
}

func TestDeclarationGenerator(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}
	var diagnostics bytes.Buffer
	g := NewDeclarationGenerator([]string{"echo", "tsc", "-d"}, &diagnostics)

	err := g.Generate(context.Background(), "tsconfig.json", "types")

	require.NoError(t, err)
	assert.Equal(t, "tsc -d --outDir types --project tsconfig.json\n", diagnostics.String())
	assert.Equal(t, DefaultDeclarationCommand, NewDeclarationGenerator(nil, nil).Command)
}

func TestNewDeclarationGenerator_DefaultsToStderr(t *testing.T) {
	t.Parallel()
	g := NewDeclarationGenerator(nil, nil)
	assert.Same(t, os.Stderr, g.Stdout)
	assert.Same(t, os.Stderr, g.Stderr)
}

func TestDeclarationGenerator_Failure(t *testing.T) {
	t.Parallel()
	g := NewDeclarationGenerator([]string{"bndl-no-such-binary"}, io.Discard)
	assert.Error(t, g.Generate(context.Background(), "tsconfig.json", "dist"))
}
