package data

import (
	"fmt"
	"iter"
	"slices"

	"eta/internal/serial"
)

const (
	DefaultClassField        = "_CLS"
	DefaultElementAttr       = "data"
	DefaultElementClassField = "_DATA_CLS"
)

// Layout names the keys a container uses in its map form.
type Layout struct {
	// ClassField stores the container class name.
	ClassField string
	// ElementAttr stores the element list.
	ElementAttr string
	// ElementClassField stores the element class name, both on the
	// container and on each element.
	ElementClassField string
}

// DefaultLayout returns the layout used when a container does not override
// any key.
func DefaultLayout() Layout {
	return Layout{
		ClassField:        DefaultClassField,
		ElementAttr:       DefaultElementAttr,
		ElementClassField: DefaultElementClassField,
	}
}

func (l Layout) withDefaults() Layout {
	if l.ClassField == "" {
		l.ClassField = DefaultClassField
	}
	if l.ElementAttr == "" {
		l.ElementAttr = DefaultElementAttr
	}
	if l.ElementClassField == "" {
		l.ElementClassField = DefaultElementClassField
	}
	return l
}

// AnyContainer is the class-independent view of a container, as returned by
// Load. Concrete containers satisfy it by embedding Container.
type AnyContainer interface {
	serial.Serializable
	ClassName() string
	ElementClass() string
	Layout() Layout
	Len() int
	FilterByIndices(indices []int) error

	appendElement(e Element) error
	bindElementType(et *ElementType) error
}

// Container is an ordered collection of elements of type E.
type Container[E Element] struct {
	class        string
	elementClass string
	layout       Layout
	elements     []E
}

// NewContainer returns an empty container. Concrete container types embed
// the result and register a ContainerType under class.
func NewContainer[E Element](class string, layout Layout, elementClass string) Container[E] {
	return Container[E]{
		class:        class,
		elementClass: elementClass,
		layout:       layout.withDefaults(),
	}
}

// ClassName returns the container class name written to the map form.
func (c *Container[E]) ClassName() string { return c.class }

// ElementClass returns the declared element class name.
func (c *Container[E]) ElementClass() string { return c.elementClass }

// Layout returns the map keys used by this container.
func (c *Container[E]) Layout() Layout { return c.layout.withDefaults() }

// Len returns the number of elements.
func (c *Container[E]) Len() int { return len(c.elements) }

// Add appends e.
func (c *Container[E]) Add(e E) {
	c.elements = append(c.elements, e)
}

// AddMany appends es in order.
func (c *Container[E]) AddMany(es ...E) {
	c.elements = append(c.elements, es...)
}

// At returns the element at index i. It panics when i is out of range.
func (c *Container[E]) At(i int) E {
	return c.elements[i]
}

// Elements returns a copy of the element slice.
func (c *Container[E]) Elements() []E {
	return slices.Clone(c.elements)
}

// All iterates over the elements in insertion order.
func (c *Container[E]) All() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		for i, e := range c.elements {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Clear removes every element.
func (c *Container[E]) Clear() {
	c.elements = nil
}

// FilterByIndices keeps only the elements at the given positions, in their
// current relative order. Duplicate indices are ignored. An out-of-range
// index fails without modifying the container.
func (c *Container[E]) FilterByIndices(indices []int) error {
	keep, err := c.selection(indices)
	if err != nil {
		return err
	}
	kept := make([]E, 0, len(keep))
	for _, i := range keep {
		kept = append(kept, c.elements[i])
	}
	c.elements = kept
	return nil
}

func (c *Container[E]) selection(indices []int) ([]int, error) {
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(c.elements) {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(c.elements))
		}
		out = append(out, i)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// ToMap renders the container with its class tags.
func (c *Container[E]) ToMap() (serial.Map, error) {
	layout := c.Layout()
	list := make([]any, 0, len(c.elements))
	for i, e := range c.elements {
		fields, err := e.ToMap()
		if err != nil {
			return nil, fmt.Errorf("serialize element %d: %w", i, err)
		}
		item := make(serial.Map, len(fields)+1)
		for k, v := range fields {
			item[k] = v
		}
		if class := c.classOf(e); class != "" {
			item[layout.ElementClassField] = class
		}
		list = append(list, item)
	}

	out := serial.Map{
		layout.ClassField:  c.class,
		layout.ElementAttr: list,
	}
	if c.elementClass != "" {
		out[layout.ElementClassField] = c.elementClass
	}
	return out, nil
}

func (c *Container[E]) classOf(e E) string {
	if classed, ok := any(e).(Classed); ok {
		if name := classed.ClassName(); name != "" {
			return name
		}
	}
	return c.elementClass
}

func (c *Container[E]) appendElement(e Element) error {
	typed, ok := e.(E)
	if !ok {
		return fmt.Errorf("%w: %T cannot be stored in %s", ErrIncompatibleElement, e, c.class)
	}
	c.elements = append(c.elements, typed)
	return nil
}

func (c *Container[E]) bindElementType(*ElementType) error {
	return nil
}
