// Package compiler binds the source transform and the declaration generator
// used by the build, and holds the source map post-processing shared by all
// transform backends.
package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Input is one source file handed to a Compiler.
type Input struct {
	// Path is the file's location, used for loader selection and messages.
	Path string
	// Source is the file content.
	Source []byte
	// SourceFileName is the name recorded in the source map, relative to the
	// directory of the emitted file.
	SourceFileName string
}

// Output is the result of compiling one file. Map is nil when no external
// source map was produced.
type Output struct {
	Code []byte
	Map  []byte
}

// Compiler transforms a single TS/JS file to JS.
type Compiler interface {
	Compile(ctx context.Context, in Input, opts Options) (*Output, error)
}

// Error carries the diagnostics a Compiler reported for one file.
type Error struct {
	Path     string
	Messages []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to compile %s: %s", e.Path, strings.Join(e.Messages, "; "))
}

// SourceFileName returns input relative to outputDir in slash form, the
// path a source map in outputDir uses to point back at its source.
func SourceFileName(input, outputDir string) (string, error) {
	in, err := filepath.Abs(input)
	if err != nil {
		return "", err
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(out, in)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
