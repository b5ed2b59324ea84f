package models

import "errors"

// Error kinds surfaced by the processing packages. Callers match them with
// errors.Is; the packages wrap them with context using fmt.Errorf and %w.
var (
	// ErrIO reports an image directory or file that cannot be read.
	ErrIO = errors.New("io error")

	// ErrDecode reports a file with a recognized extension that is not a
	// valid multi-page image.
	ErrDecode = errors.New("decode error")

	// ErrShape reports a violated array-shape or count invariant.
	ErrShape = errors.New("shape error")

	// ErrIndex reports an out-of-range trial selection.
	ErrIndex = errors.New("index error")

	// ErrMetadata reports a malformed metadata record or one that has no
	// trials for an orientation of interest.
	ErrMetadata = errors.New("metadata error")
)
