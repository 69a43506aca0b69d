// Package hcl provides the HCL implementation of config.Loader. It reads the
// optional bndl.hcl settings file, evaluating expressions against an `env`
// object that exposes the process environment, and translates the decoded
// schema into config.Settings.
package hcl
