package detector

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKey       = errors.New("unknown configuration key")
	ErrInvalidValue     = errors.New("invalid value")
	ErrUnknownModule    = errors.New("unknown detector module")
	ErrDuplicateModule  = errors.New("detector module already enabled")
	ErrModuleNotEnabled = errors.New("detector module not enabled")
	ErrFrozen           = errors.New("geometry already built")
	ErrAlreadyBuilt     = errors.New("geometry built more than once")
	ErrNotBuilt         = errors.New("geometry not built")
	ErrAlreadyAttached  = errors.New("sensitive detectors already attached")
)

// ConfigError reports a configuration command that was rejected. It is
// always fatal and surfaces before the geometry is built.
type ConfigError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration %q %q: %v", e.Key, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(key string, value string, err error) *ConfigError {
	return &ConfigError{Key: key, Value: value, Err: err}
}
