package sequence

import "errors"

var (
	ErrInvalidPattern       = errors.New("invalid sequence pattern")
	ErrNoMatchingFiles      = errors.New("sequence did not match any files")
	ErrOutOfBounds          = errors.New("index out of bounds")
	ErrNegativeIndex        = errors.New("indices must be nonnegative")
	ErrNonAdjacentExtension = errors.New("mutable sequences can be extended at most one index above or below")
	ErrImmutableSequence    = errors.New("cannot set bounds of an immutable sequence")
)
