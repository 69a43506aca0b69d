package compiler

import (
	"path/filepath"
	"regexp"
	"strings"
)

// importSpecifier matches the module specifier of static imports, exports,
// dynamic imports and require calls in emitted code.
var importSpecifier = regexp.MustCompile(`(\bfrom\s*|\bimport\s*\(\s*|\brequire\s*\(\s*|\bimport\s+)(["'])([^"'\n]+)["']`)

// sourceExts are dropped from rewritten specifiers; the emitted files carry
// .js and resolve without an extension.
var sourceExts = []string{".ts", ".tsx", ".mts", ".cts"}

// RewriteAliases replaces specifiers matching a paths alias with a path
// relative to dir, the directory of the source file. Because the output
// tree mirrors the source tree, the same relative path holds for the
// emitted file. Code is returned unchanged when no aliases are configured.
func RewriteAliases(code []byte, dir string, opts Options) []byte {
	if len(opts.Paths) == 0 || opts.BaseURL == "" || dir == "" {
		return code
	}
	return importSpecifier.ReplaceAllFunc(code, func(m []byte) []byte {
		sub := importSpecifier.FindSubmatch(m)
		target, ok := resolveAlias(string(sub[3]), opts.Paths)
		if !ok {
			return m
		}
		rel := relativeImport(dir, filepath.Join(opts.BaseURL, filepath.FromSlash(target)))
		return []byte(string(sub[1]) + string(sub[2]) + rel + string(sub[2]))
	})
}

// resolveAlias maps spec through paths the way tsc does: an exact pattern
// wins, otherwise the wildcard pattern with the longest prefix. Only the
// first target of a pattern is used.
func resolveAlias(spec string, paths map[string][]string) (string, bool) {
	best, bestLen, capture := "", -1, ""
	for pattern, targets := range paths {
		if len(targets) == 0 {
			continue
		}
		if pattern == spec {
			return targets[0], true
		}
		prefix, suffix, wildcard := strings.Cut(pattern, "*")
		if !wildcard || len(spec) < len(prefix)+len(suffix) ||
			!strings.HasPrefix(spec, prefix) || !strings.HasSuffix(spec, suffix) {
			continue
		}
		if len(prefix) > bestLen || (len(prefix) == bestLen && pattern < best) {
			best, bestLen = pattern, len(prefix)
			capture = spec[len(prefix) : len(spec)-len(suffix)]
		}
	}
	if bestLen < 0 {
		return "", false
	}
	return strings.Replace(paths[best][0], "*", capture, 1), true
}

func relativeImport(fromDir, target string) string {
	for _, ext := range sourceExts {
		if strings.HasSuffix(target, ext) && !strings.HasSuffix(target, ".d"+ext) {
			target = strings.TrimSuffix(target, ext)
			break
		}
	}
	rel, err := filepath.Rel(fromDir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel = filepath.ToSlash(rel)
	if rel != ".." && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}
