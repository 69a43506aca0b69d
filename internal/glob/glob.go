// Package glob turns tsconfig include/exclude lists into matchers and decides
// which files take part in a build.
package glob

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// compilable lists the extensions handed to the compiler.
var compilable = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
}

// Set is a compiled list of patterns. The zero value matches nothing.
type Set struct {
	patterns []string
}

// Pair holds the include and exclude sets of one build invocation. It is
// immutable once built and safe for concurrent use.
type Pair struct {
	Include *Set
	Exclude *Set
}

// Build compiles include and exclude lists. Patterns that are neither
// "./"-anchored nor start with a wildcard may appear anywhere in the tree and
// are expanded into root, nested and cwd-anchored variants; patterns without
// an extension name directories and match everything beneath them.
func Build(include, exclude []string, cwd string) (*Pair, error) {
	in, err := NewSet(include, cwd)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	ex, err := NewSet(exclude, cwd)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	return &Pair{Include: in, Exclude: ex}, nil
}

// NewSet expands and validates raw patterns.
func NewSet(raw []string, cwd string) (*Set, error) {
	s := &Set{}
	anchor := escape(filepath.ToSlash(cwd))
	for _, p := range raw {
		for _, expanded := range expand(p, anchor) {
			if !doublestar.ValidatePattern(expanded) {
				return nil, fmt.Errorf("%q: %w", p, doublestar.ErrBadPattern)
			}
			s.patterns = append(s.patterns, expanded)
		}
	}
	return s, nil
}

func expand(raw, cwd string) []string {
	p := strings.TrimSuffix(filepath.ToSlash(raw), "/")
	if p == "" {
		return nil
	}

	isFile := path.Ext(p) != ""

	if rel, anchored := strings.CutPrefix(p, "./"); anchored {
		if !isFile && !hasMeta(rel) {
			return []string{rel + "/**", rel}
		}
		return []string{rel}
	}
	if strings.HasPrefix(p, "*") {
		return []string{p}
	}

	var out []string
	if isFile {
		out = append(out, "**/"+p)
		if cwd != "" {
			out = append(out, cwd+"/"+p)
		}
	} else {
		out = append(out, p+"/**", "**/"+p+"/**")
		if cwd != "" {
			out = append(out, cwd+"/"+p+"/**")
		}
	}
	return append(out, p)
}

// Len reports the number of compiled patterns.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Match reports whether p matches any pattern in the set.
func (s *Set) Match(p string) bool {
	if s == nil {
		return false
	}
	name := normalize(p)
	for _, pattern := range s.patterns {
		if doublestar.MatchUnvalidated(pattern, name) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether p matches the exclude set.
func (p *Pair) IsExcluded(name string) bool {
	return p.Exclude.Match(name)
}

// IsIncluded reports whether p matches the include set. An empty include set
// includes everything.
func (p *Pair) IsIncluded(name string) bool {
	if p.Include.Len() == 0 {
		return true
	}
	return p.Include.Match(name)
}

// IsEligible reports whether the file at name should be compiled.
func (p *Pair) IsEligible(name string) bool {
	return IsCompilable(name) && !p.IsExcluded(name) && p.IsIncluded(name)
}

// IsCompilable reports whether name carries a source extension. Declaration
// files never produce code and are not compilable.
func IsCompilable(name string) bool {
	if strings.HasSuffix(name, ".d.ts") {
		return false
	}
	return compilable[filepath.Ext(name)]
}

func normalize(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, `*?[{\`)
}

func escape(p string) string {
	var b strings.Builder
	for _, r := range p {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
