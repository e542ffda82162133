// Package sequence addresses numbered files on disk, such as video frames or
// per-frame annotations, through a printf-style pattern like
// /data/video/frame-%05d.png.
//
// A FileSequence tracks the inclusive index interval that exists on disk.
// Immutable sequences only address that interval. Mutable sequences may grow
// by exactly one index past either end per PathFor call, so writers can
// append frames without leaving holes.
//
// A FileSequence is not safe for concurrent mutation. Iterators returned by
// Paths and All keep their own position and may run concurrently as long as
// nothing changes the bounds.
package sequence

import (
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"

	"eta/internal/logging"
	"eta/internal/serial"
)

// FileSequence is a bounded, indexed family of files.
type FileSequence struct {
	pattern   pattern
	immutable bool
	lower     int
	upper     int
	logger    *slog.Logger
}

type options struct {
	mutable bool
	logger  *slog.Logger
}

// Option configures Open and OpenDir.
type Option func(*options)

// WithMutableBounds allows PathFor and the bound setters to change the
// sequence bounds.
func WithMutableBounds() Option {
	return func(o *options) { o.mutable = true }
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open scans the directory of pattern and returns the sequence spanning the
// matching files. Bounds are immutable unless WithMutableBounds is given.
func Open(pat string, opts ...Option) (*FileSequence, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "sequence")

	p, err := parsePattern(pat)
	if err != nil {
		return nil, err
	}
	lower, upper, count, err := p.bounds()
	if err != nil {
		return nil, err
	}
	logger.Debug("file sequence opened",
		logging.String(logging.FieldPath, pat),
		logging.Int("lower_bound", lower),
		logging.Int("upper_bound", upper),
		logging.Int("files", count),
	)
	if span := upper - lower + 1; span != count {
		logging.WarnWithContext(logger, "file sequence has gaps", "sequence_gaps",
			logging.String(logging.FieldPath, pat),
			logging.Int("missing", span-count),
			logging.String(logging.FieldErrorHint, "paths inside the bounds may not exist on disk"),
		)
	}

	return &FileSequence{
		pattern:   p,
		immutable: !o.mutable,
		lower:     lower,
		upper:     upper,
		logger:    logger,
	}, nil
}

// OpenDir detects the largest numbered file family in dir and opens it.
func OpenDir(dir string, opts ...Option) (*FileSequence, error) {
	pat, err := detectPattern(dir)
	if err != nil {
		return nil, err
	}
	return Open(pat, opts...)
}

// FromMap opens the sequence described by a {"sequence", "immutable_bounds"}
// map. Bounds are immutable when the flag is absent.
func FromMap(m serial.Map, opts ...Option) (*FileSequence, error) {
	var desc struct {
		Sequence        string `json:"sequence"`
		ImmutableBounds *bool  `json:"immutable_bounds"`
	}
	if err := serial.Decode(m, &desc); err != nil {
		return nil, err
	}
	if desc.Sequence == "" {
		return nil, fmt.Errorf("%w: map has no sequence", ErrInvalidPattern)
	}
	if desc.ImmutableBounds != nil && !*desc.ImmutableBounds {
		opts = append(opts, WithMutableBounds())
	}
	return Open(desc.Sequence, opts...)
}

// ToMap implements serial.Serializable.
func (s *FileSequence) ToMap() (serial.Map, error) {
	return serial.Map{
		"sequence":         s.pattern.raw,
		"immutable_bounds": s.immutable,
	}, nil
}

// Pattern returns the printf-style pattern.
func (s *FileSequence) Pattern() string { return s.pattern.raw }

// Extension returns the file extension of the pattern, including the dot.
func (s *FileSequence) Extension() string { return filepath.Ext(s.pattern.raw) }

// Immutable reports whether the bounds are fixed.
func (s *FileSequence) Immutable() bool { return s.immutable }

// LowerBound returns the smallest index in the sequence.
func (s *FileSequence) LowerBound() int { return s.lower }

// UpperBound returns the largest index in the sequence.
func (s *FileSequence) UpperBound() int { return s.upper }

// Len returns the number of indices between the bounds.
func (s *FileSequence) Len() int { return s.upper - s.lower + 1 }

// StartsAtZero reports whether the lower bound is 0.
func (s *FileSequence) StartsAtZero() bool { return s.lower == 0 }

// StartsAtOne reports whether the lower bound is 1.
func (s *FileSequence) StartsAtOne() bool { return s.lower == 1 }

// CheckBounds reports whether index lies within the bounds.
func (s *FileSequence) CheckBounds(index int) bool {
	return index >= s.lower && index <= s.upper
}

// SetLowerBound moves the lower bound, clamped to the upper bound.
func (s *FileSequence) SetLowerBound(v int) error {
	if s.immutable {
		return ErrImmutableSequence
	}
	s.lower = min(v, s.upper)
	return nil
}

// SetUpperBound moves the upper bound, clamped to the lower bound.
func (s *FileSequence) SetUpperBound(v int) error {
	if s.immutable {
		return ErrImmutableSequence
	}
	s.upper = max(v, s.lower)
	return nil
}

// PathFor returns the path of index. On a mutable sequence an index one past
// either bound extends that bound.
func (s *FileSequence) PathFor(index int) (string, error) {
	switch {
	case s.immutable:
		if !s.CheckBounds(index) {
			return "", fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfBounds, index, s.lower, s.upper)
		}
	case index < 0:
		return "", fmt.Errorf("%w: %d", ErrNegativeIndex, index)
	case index == s.lower-1:
		s.lower = index
		s.logger.Debug("file sequence extended", logging.String("bound", "lower"), logging.Int("index", index))
	case index == s.upper+1:
		s.upper = index
		s.logger.Debug("file sequence extended", logging.String("bound", "upper"), logging.Int("index", index))
	case !s.CheckBounds(index):
		return "", fmt.Errorf("%w: %d not in [%d, %d]", ErrNonAdjacentExtension, index, s.lower, s.upper)
	}
	return s.pattern.format(index), nil
}

// Paths yields the path of every index from the lower to the upper bound.
func (s *FileSequence) Paths() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, path := range s.All() {
			if !yield(path) {
				return
			}
		}
	}
}

// All yields each index in ascending order with its path.
func (s *FileSequence) All() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i := s.lower; s.CheckBounds(i); i++ {
			if !yield(i, s.pattern.format(i)) {
				return
			}
		}
	}
}
