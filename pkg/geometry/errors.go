package geometry

import (
	"errors"
	"fmt"
)

var (
	ErrDegenerate      = errors.New("degenerate solid")
	ErrOverlap         = errors.New("overlapping volumes")
	ErrOutsideMother   = errors.New("volume extends outside its mother")
	ErrDuplicateCopyNo = errors.New("copy number already in use")
)

// BuildError reports a geometry that cannot be realized.
type BuildError struct {
	Volume string
	Reason string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("building volume %q: %v", e.Volume, e.Err)
	}
	return fmt.Sprintf("building volume %q: %v: %s", e.Volume, e.Err, e.Reason)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
