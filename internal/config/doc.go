// Package config defines the format-agnostic tool settings for bndl, along
// with the Loader interface implemented by concrete settings readers.
//
// Settings come from three layers: a settings file (see the hcl package),
// the process environment, and finally command-line flags applied by the
// app package. Each layer only overrides what it explicitly sets.
package config
