package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
)

var esTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

// Esbuild compiles files with esbuild's transform API. It keeps no state and
// is safe for concurrent use.
type Esbuild struct{}

// NewEsbuild returns the esbuild-backed Compiler.
func NewEsbuild() *Esbuild {
	return &Esbuild{}
}

// Compile implements Compiler.
func (e *Esbuild) Compile(ctx context.Context, in Input, opts Options) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transform, err := e.transformOptions(in, opts)
	if err != nil {
		return nil, err
	}

	result := api.Transform(string(in.Source), transform)
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
				continue
			}
			msgs = append(msgs, m.Text)
		}
		return nil, &Error{Path: in.Path, Messages: msgs}
	}

	out := &Output{Code: result.Code}
	if len(result.Map) > 0 {
		out.Map = result.Map
	}
	return out, nil
}

func (e *Esbuild) transformOptions(in Input, opts Options) (api.TransformOptions, error) {
	raw, err := json.Marshal(map[string]any{
		"compilerOptions": map[string]any{
			"experimentalDecorators": opts.Decorators,
		},
	})
	if err != nil {
		return api.TransformOptions{}, err
	}

	target, ok := esTargets[opts.Target]
	if !ok {
		target = api.ESNext
	}

	t := api.TransformOptions{
		Loader:            loaderFor(in.Path),
		Target:            target,
		Format:            api.FormatCommonJS,
		Platform:          api.PlatformNode,
		Sourcefile:        in.SourceFileName,
		SourceRoot:        opts.SourceRoot,
		TsconfigRaw:       string(raw),
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		KeepNames:         opts.Decorators,
		LogLevel:          api.LogLevelSilent,
	}
	if opts.Module == ModuleESM {
		t.Format = api.FormatESModule
	}
	if opts.KeepComments {
		t.LegalComments = api.LegalCommentsInline
	} else {
		t.LegalComments = api.LegalCommentsNone
	}

	switch opts.SourceMaps {
	case SourceMapExternal:
		t.Sourcemap = api.SourceMapExternal
	case SourceMapInline:
		t.Sourcemap = api.SourceMapInline
	default:
		t.Sourcemap = api.SourceMapNone
	}
	if opts.InlineSourcesContent {
		t.SourcesContent = api.SourcesContentInclude
	} else {
		t.SourcesContent = api.SourcesContentExclude
	}
	return t, nil
}

func loaderFor(path string) api.Loader {
	switch filepath.Ext(path) {
	case ".tsx":
		return api.LoaderTSX
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}
