package compiler

import (
	"strings"

	"github.com/vk/bndl/internal/tsconfig"
)

// Source map modes.
const (
	SourceMapNone     = ""
	SourceMapExternal = "external"
	SourceMapInline   = "inline"
)

// Module formats.
const (
	ModuleCommonJS = "commonjs"
	ModuleESM      = "esm"
)

// Options is the compiler-facing view of resolved tsconfig options. Its JSON
// form is what `bndl convert` prints, so empty values are omitted.
type Options struct {
	Target               string              `json:"target,omitempty"`
	Module               string              `json:"module,omitempty"`
	SourceMaps           string              `json:"sourceMaps,omitempty"`
	SourceRoot           string              `json:"sourceRoot,omitempty"`
	InlineSourcesContent bool                `json:"inlineSourcesContent,omitempty"`
	Decorators           bool                `json:"decorators,omitempty"`
	KeepComments         bool                `json:"keepComments,omitempty"`
	ESModuleInterop      bool                `json:"esModuleInterop,omitempty"`
	Minify               bool                `json:"minify,omitempty"`
	OutDir               string              `json:"outDir,omitempty"`
	BaseURL              string              `json:"baseUrl,omitempty"`
	Paths                map[string][]string `json:"paths,omitempty"`
}

// FromResolved maps resolved tsconfig options onto compiler Options. cwd
// anchors baseUrl; outDir is the already-determined output directory.
func FromResolved(cfg *tsconfig.ProjectConfig, cwd, outDir string, minify bool) Options {
	o := cfg.Options()
	baseURL := cfg.BaseURL(cwd)

	opts := Options{
		Target:               normalizeTarget(tsconfig.String(o.Target)),
		Module:               moduleFormat(tsconfig.String(o.Module)),
		InlineSourcesContent: tsconfig.Bool(o.InlineSources),
		Decorators:           tsconfig.Bool(o.ExperimentalDecorators),
		KeepComments:         !tsconfig.Bool(o.RemoveComments),
		ESModuleInterop:      tsconfig.Bool(o.ESModuleInterop),
		Minify:               minify,
		OutDir:               outDir,
		BaseURL:              baseURL,
	}
	if paths := cfg.Paths(baseURL); len(paths) > 0 {
		opts.Paths = paths
	}

	switch {
	case tsconfig.Bool(o.InlineSourceMap):
		opts.SourceMaps = SourceMapInline
	case tsconfig.Bool(o.SourceMap):
		opts.SourceMaps = SourceMapExternal
	}
	return opts
}

// normalizeTarget lowercases a tsconfig target. Unknown or missing targets
// compile for the newest language level; es3 is not supported downstream and
// is raised to es5.
func normalizeTarget(target string) string {
	switch t := strings.ToLower(target); t {
	case "es3", "es5":
		return "es5"
	case "es6":
		return "es2015"
	case "es2015", "es2016", "es2017", "es2018", "es2019", "es2020", "es2021", "es2022", "es2023", "es2024":
		return t
	default:
		return "esnext"
	}
}

func moduleFormat(module string) string {
	switch strings.ToLower(module) {
	case "es6", "es2015", "es2020", "es2022", "esnext":
		return ModuleESM
	default:
		// commonjs, cjs and the wrapper formats (amd, umd, system), plus
		// anything unrecognized.
		return ModuleCommonJS
	}
}
