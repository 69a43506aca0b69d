// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package tsconfig

// DefaultFile is the configuration file name used when none is given.
const DefaultFile = "tsconfig.json"

// DefaultOutDir is the output directory used when neither the command line
// nor the configuration chooses one.
const DefaultOutDir = "dist"

// ProjectConfig mirrors the parts of a tsconfig.json the build understands.
// Every field is optional: nil means "not set here", which lets a base
// configuration fill it in through the extends chain.
type ProjectConfig struct {
	Extends         *string          `json:"extends,omitempty"`
	CompilerOptions *CompilerOptions `json:"compilerOptions,omitempty"`
	Include         []string         `json:"include,omitempty"`
	Exclude         []string         `json:"exclude,omitempty"`
}

// CompilerOptions is the "compilerOptions" object of a tsconfig.json.
type CompilerOptions struct {
	Module                 *string             `json:"module,omitempty"`
	Declaration            *bool               `json:"declaration,omitempty"`
	ExperimentalDecorators *bool               `json:"experimentalDecorators,omitempty"`
	Target                 *string             `json:"target,omitempty"`
	SourceMap              *bool               `json:"sourceMap,omitempty"`
	BaseURL                *string             `json:"baseUrl,omitempty"`
	Paths                  map[string][]string `json:"paths,omitempty"`
	InlineSources          *bool               `json:"inlineSources,omitempty"`
	InlineSourceMap        *bool               `json:"inlineSourceMap,omitempty"`
	DeclarationDir         *string             `json:"declarationDir,omitempty"`
	OutDir                 *string             `json:"outDir,omitempty"`
	RemoveComments         *bool               `json:"removeComments,omitempty"`
	ResolveJSONModule      *bool               `json:"resolveJsonModule,omitempty"`
	ESModuleInterop        *bool               `json:"esModuleInterop,omitempty"`
}

// Resolved is a ProjectConfig with its whole extends chain folded in.
type Resolved struct {
	ProjectConfig

	// Path is the configuration path the resolution started from.
	Path string
	// Files lists the files that contributed, child first. Unreachable
	// configurations that fell back to an empty one are not listed.
	Files []string
}

// Options returns the compiler options, never nil.
func (c *ProjectConfig) Options() CompilerOptions {
	if c == nil || c.CompilerOptions == nil {
		return CompilerOptions{}
	}
	return *c.CompilerOptions
}

// Bool dereferences an optional flag, treating unset as false.
func Bool(p *bool) bool {
	return p != nil && *p
}

// String dereferences an optional string, treating unset as empty.
func String(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
