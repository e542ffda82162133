// Package video holds per-frame labels for video annotation files.
//
// FrameLabelContainer uses its own map layout: the container class is stored
// under "_TYPE", labels under "frames" and the label class under
// "_FRAME_CLS".
package video

import (
	"fmt"
	"iter"
	"slices"

	"eta/internal/data"
	"eta/internal/sequence"
	"eta/internal/serial"
)

const (
	FrameLabelClass          = "eta.core.video.FrameLabel"
	FrameLabelContainerClass = "eta.core.video.FrameLabelContainer"
)

// FrameLayout is the map layout of FrameLabelContainer.
var FrameLayout = data.Layout{
	ClassField:        "_TYPE",
	ElementAttr:       "frames",
	ElementClassField: "_FRAME_CLS",
}

// FrameLabel labels a single frame of a video.
type FrameLabel struct {
	FrameNumber int                    `record:"frame_number,required"`
	Label       string                 `record:"label,required"`
	Confidence  data.Optional[float64] `record:"confidence,optional"`
}

// FrameLabelType decodes FrameLabel maps.
var FrameLabelType = data.RegisterElement(data.NewRecordType[FrameLabel](FrameLabelClass))

// NewFrameLabel returns a label without a confidence.
func NewFrameLabel(frame int, label string) *FrameLabel {
	return &FrameLabel{FrameNumber: frame, Label: label}
}

// ToMap implements data.Element.
func (f *FrameLabel) ToMap() (serial.Map, error) {
	return data.RecordToMap(f)
}

// FrameLabelContainer holds the labels of one video.
type FrameLabelContainer struct {
	data.Container[*FrameLabel]
}

func init() {
	data.RegisterContainer(data.ContainerType{
		Name: FrameLabelContainerClass,
		New:  func() data.AnyContainer { return NewFrameLabelContainer() },
	})
}

// NewFrameLabelContainer returns a container holding labels.
func NewFrameLabelContainer(labels ...*FrameLabel) *FrameLabelContainer {
	c := &FrameLabelContainer{
		Container: data.NewContainer[*FrameLabel](FrameLabelContainerClass, FrameLayout, FrameLabelClass),
	}
	c.AddMany(labels...)
	return c
}

// FrameNumbers returns the sorted distinct frame numbers that carry labels.
func (c *FrameLabelContainer) FrameNumbers() []int {
	var out []int
	for _, f := range c.All() {
		out = append(out, f.FrameNumber)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ForFrame returns the labels of frame, in order.
func (c *FrameLabelContainer) ForFrame(frame int) []*FrameLabel {
	var out []*FrameLabel
	for _, f := range c.All() {
		if f.FrameNumber == frame {
			out = append(out, f)
		}
	}
	return out
}

// FramePaths pairs each labeled frame number with its image path in seq.
// Frames outside the sequence bounds are skipped; see MissingFrames.
func (c *FrameLabelContainer) FramePaths(seq *sequence.FileSequence) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for _, frame := range c.FrameNumbers() {
			if !seq.CheckBounds(frame) {
				continue
			}
			path, _ := seq.PathFor(frame)
			if !yield(frame, path) {
				return
			}
		}
	}
}

// MissingFrames returns the labeled frame numbers that fall outside seq.
func (c *FrameLabelContainer) MissingFrames(seq *sequence.FileSequence) []int {
	var out []int
	for _, frame := range c.FrameNumbers() {
		if !seq.CheckBounds(frame) {
			out = append(out, frame)
		}
	}
	return out
}

// Validate checks that every labeled frame exists in seq.
func (c *FrameLabelContainer) Validate(seq *sequence.FileSequence) error {
	if missing := c.MissingFrames(seq); len(missing) > 0 {
		return fmt.Errorf("%w: frames %v not in [%d, %d]", sequence.ErrOutOfBounds, missing, seq.LowerBound(), seq.UpperBound())
	}
	return nil
}
