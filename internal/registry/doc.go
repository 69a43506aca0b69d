// Package registry discovers the workspace a build runs in and indexes its
// internal packages.
//
// A workspace root is the nearest ancestor directory whose package.json
// declares a "workspaces" field. Every package.json found underneath that
// root (outside node_modules and dist, without following symlinks) becomes
// one entry of the package index, keyed by its "name".
//
// A Registry is built once per invocation and handed to every component
// that needs package lookups. Root discovery and indexing are memoized on
// the Registry and are safe for concurrent use, which matters because the
// dependency bundler resolves many packages' configurations in parallel.
package registry
