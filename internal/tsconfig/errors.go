package tsconfig

import (
	"errors"
	"fmt"
)

// ErrExtendsCycle is returned when a configuration extends itself, directly
// or through other configurations.
var ErrExtendsCycle = errors.New("extends cycle")

// ConfigParseError reports a configuration file that exists but is not
// valid JSON (comments and trailing commas are accepted).
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}
