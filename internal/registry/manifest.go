// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ManifestFile is the manifest file name looked for in every package.
const ManifestFile = "package.json"

// Manifest is the subset of package.json the build cares about.
type Manifest struct {
	Name         string            `json:"name"`
	Workspaces   *Workspaces       `json:"workspaces,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Workspaces holds the two accepted shapes of the "workspaces" field: a plain
// list of globs, or an object with "packages" and "nohoist" lists. Only its
// presence is significant for root discovery.
type Workspaces struct {
	Packages []string `json:"packages"`
	NoHoist  []string `json:"nohoist,omitempty"`
}

// UnmarshalJSON accepts both the list form and the object form.
func (w *Workspaces) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var globs []string
		if err := json.Unmarshal(data, &globs); err != nil {
			return fmt.Errorf("invalid workspaces list: %w", err)
		}
		w.Packages = globs
		w.NoHoist = nil
		return nil
	}

	type object Workspaces
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid workspaces object: %w", err)
	}
	*w = Workspaces(obj)
	return nil
}

// IsWorkspaceRoot reports whether the manifest declares workspaces.
func (m *Manifest) IsWorkspaceRoot() bool {
	return m != nil && m.Workspaces != nil
}

// LoadManifest reads and decodes the manifest at path. A missing file is
// reported with an error wrapping os.ErrNotExist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// loadManifestOrEmpty mirrors how the build treats unreadable manifests: they
// simply contribute nothing. The returned error is only for logging.
func loadManifestOrEmpty(path string) (*Manifest, error) {
	m, err := LoadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Manifest{}, nil
		}
		return &Manifest{}, err
	}
	return m, nil
}
