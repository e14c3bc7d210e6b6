package engine

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed or missing parameter combination for one
// stimulus. Surfaced before any repetition starts.
type ConfigError struct {
	Stim   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("stim %q: %s", e.Stim, e.Reason)
}

// DataFormatError reports table or image file contents that match no
// supported format. Aborts that stimulus's setup.
type DataFormatError struct {
	Path   string
	Reason string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// FatalAnimationError is a transient generation failure that recurred on the
// retry. It aborts the whole run.
type FatalAnimationError struct {
	Stim  string
	Frame int
	Err   error
}

func (e *FatalAnimationError) Error() string {
	return fmt.Sprintf("stim %q at frame %d: %v", e.Stim, e.Frame, e.Err)
}

func (e *FatalAnimationError) Unwrap() error { return e.Err }

// errExhausted marks an exhausted or corrupted position array. It is
// recovered once per frame by regenerating the current leg; a second
// consecutive occurrence is promoted to FatalAnimationError.
var errExhausted = errors.New("position array exhausted")
