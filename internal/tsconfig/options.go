package tsconfig

import (
	"path/filepath"
	"strings"
)

// DetermineOutDir returns override when set, else the configured outDir,
// else DefaultOutDir.
func (c *ProjectConfig) DetermineOutDir(override string) string {
	if override != "" {
		return override
	}
	if out := String(c.Options().OutDir); out != "" {
		return out
	}
	return DefaultOutDir
}

// DeclarationDir returns the configured declarationDir, falling back to
// outDir.
func (c *ProjectConfig) DeclarationDir(outDir string) string {
	if dir := String(c.Options().DeclarationDir); dir != "" {
		return dir
	}
	return outDir
}

// BaseURL returns baseUrl anchored at cwd, or "" when it is not set.
func (c *ProjectConfig) BaseURL(cwd string) string {
	base := c.Options().BaseURL
	if base == nil {
		return ""
	}
	return filepath.Join(cwd, strings.TrimPrefix(*base, "./"))
}

// Paths returns the path alias map. Aliases are only meaningful relative to
// a base URL, so the map is empty when baseURL is.
func (c *ProjectConfig) Paths(baseURL string) map[string][]string {
	if baseURL == "" {
		return map[string][]string{}
	}
	paths := c.Options().Paths
	if paths == nil {
		return map[string][]string{}
	}
	return paths
}
