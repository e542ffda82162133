// Package geometry holds labeled 2D points and their container.
package geometry

import (
	"slices"

	"eta/internal/data"
	"eta/internal/serial"
)

const (
	LabeledPointClass          = "eta.core.geometry.LabeledPoint"
	LabeledPointContainerClass = "eta.core.geometry.LabeledPointContainer"
)

// LabeledPoint is a point in relative image coordinates with a label.
type LabeledPoint struct {
	Label      string                 `record:"label,required"`
	X          float64                `record:"x,required"`
	Y          float64                `record:"y,required"`
	Confidence data.Optional[float64] `record:"confidence,optional"`
}

// LabeledPointType decodes LabeledPoint maps.
var LabeledPointType = data.RegisterElement(data.NewRecordType[LabeledPoint](LabeledPointClass))

// NewLabeledPoint returns a point without a confidence.
func NewLabeledPoint(label string, x, y float64) *LabeledPoint {
	return &LabeledPoint{Label: label, X: x, Y: y}
}

// ToMap implements data.Element.
func (p *LabeledPoint) ToMap() (serial.Map, error) {
	return data.RecordToMap(p)
}

// LabeledPointContainer stores points under "points".
type LabeledPointContainer struct {
	data.Container[*LabeledPoint]
}

func init() {
	data.RegisterContainer(data.ContainerType{
		Name: LabeledPointContainerClass,
		New:  func() data.AnyContainer { return NewLabeledPointContainer() },
	})
}

// NewLabeledPointContainer returns a container holding points.
func NewLabeledPointContainer(points ...*LabeledPoint) *LabeledPointContainer {
	c := &LabeledPointContainer{
		Container: data.NewContainer[*LabeledPoint](LabeledPointContainerClass,
			data.Layout{ElementAttr: "points"}, LabeledPointClass),
	}
	c.AddMany(points...)
	return c
}

// Labels returns the sorted distinct labels.
func (c *LabeledPointContainer) Labels() []string {
	var out []string
	for _, p := range c.All() {
		out = append(out, p.Label)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// WithLabel returns the points carrying label, in order.
func (c *LabeledPointContainer) WithLabel(label string) []*LabeledPoint {
	var out []*LabeledPoint
	for _, p := range c.All() {
		if p.Label == label {
			out = append(out, p)
		}
	}
	return out
}

// Bounds returns the smallest box containing every point. ok is false for an
// empty container.
func (c *LabeledPointContainer) Bounds() (topLeft, bottomRight LabeledPoint, ok bool) {
	for i, p := range c.All() {
		if i == 0 {
			topLeft = LabeledPoint{X: p.X, Y: p.Y}
			bottomRight = topLeft
			continue
		}
		topLeft.X, topLeft.Y = min(topLeft.X, p.X), min(topLeft.Y, p.Y)
		bottomRight.X, bottomRight.Y = max(bottomRight.X, p.X), max(bottomRight.Y, p.Y)
	}
	return topLeft, bottomRight, c.Len() > 0
}
