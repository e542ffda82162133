package data

import (
	"fmt"

	"eta/internal/serial"
)

type loadOptions struct {
	containerClass string
	elementClass   string
}

// LoadOption adjusts how Load resolves classes that the map does not name.
type LoadOption func(*loadOptions)

// WithContainerClass names the container class to use when the map carries
// no container tag.
func WithContainerClass(name string) LoadOption {
	return func(o *loadOptions) { o.containerClass = name }
}

// WithElementClass names the element class to use when neither the
// container nor its elements carry an element tag.
func WithElementClass(name string) LoadOption {
	return func(o *loadOptions) { o.elementClass = name }
}

// Load rebuilds a container from its map form. The container class comes
// from the map's class tag (or WithContainerClass); the element class comes
// from the container-level element tag, then the first element's tag, then
// WithElementClass, then the container's declared element class. Elements
// carrying their own tag are decoded with that class.
func Load(m serial.Map, opts ...LoadOption) (AnyContainer, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	name := containerClassOf(m)
	if name == "" {
		name = o.containerClass
	}
	if name == "" {
		return nil, fmt.Errorf("%w: map has no container class tag", ErrClassResolution)
	}
	ct, err := LookupContainer(name)
	if err != nil {
		return nil, err
	}

	c := ct.New()
	layout := c.Layout()
	raw, err := rawElements(m, layout)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	elementName := elementClassOf(m, raw, layout)
	if elementName == "" {
		elementName = o.elementClass
	}
	if elementName == "" {
		elementName = c.ElementClass()
	}
	if elementName == "" {
		if len(raw) == 0 {
			return c, nil
		}
		if _, isRecords := c.(*Records); isRecords {
			return nil, fmt.Errorf("%w: %s has no %s tag", ErrMissingRecordClass, name, layout.ElementClassField)
		}
		return nil, fmt.Errorf("%w: %s has no %s tag", ErrAmbiguousElementType, name, layout.ElementClassField)
	}

	et, err := LookupElement(elementName)
	if err != nil {
		return nil, err
	}
	if err := c.bindElementType(et); err != nil {
		return nil, err
	}

	for i, item := range raw {
		em, _ := serial.AsMap(item)
		elementType := et
		if tag, ok := serial.String(em, layout.ElementClassField); ok && tag != "" && tag != et.Name {
			if elementType, err = LookupElement(tag); err != nil {
				return nil, fmt.Errorf("load %s element %d: %w", name, i, err)
			}
		}
		e, err := elementType.FromMap(em)
		if err != nil {
			return nil, fmt.Errorf("load %s element %d: %w", name, i, err)
		}
		if err := c.appendElement(e); err != nil {
			return nil, fmt.Errorf("load %s element %d: %w", name, i, err)
		}
	}
	return c, nil
}

// LoadAs loads m and narrows the result to the container type C.
func LoadAs[C AnyContainer](m serial.Map, opts ...LoadOption) (C, error) {
	c, err := Load(m, opts...)
	if err != nil {
		var zero C
		return zero, err
	}
	return As[C](c)
}

// As narrows c to the container type C.
func As[C AnyContainer](c AnyContainer) (C, error) {
	typed, ok := c.(C)
	if !ok {
		var zero C
		return zero, fmt.Errorf("%w: got %T (%s), want %T", ErrUnexpectedContainer, c, c.ClassName(), zero)
	}
	return typed, nil
}

// Read loads the container stored at path.
func Read(path string, opts ...LoadOption) (AnyContainer, error) {
	m, err := serial.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Load(m, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ReadAs loads the container stored at path and narrows it to C.
func ReadAs[C AnyContainer](path string, opts ...LoadOption) (C, error) {
	c, err := Read(path, opts...)
	if err != nil {
		var zero C
		return zero, err
	}
	return As[C](c)
}

// Write stores c at path in the format implied by the extension.
func Write(path string, c serial.Serializable) error {
	return serial.Write(path, c)
}

func containerClassOf(m serial.Map) string {
	for _, field := range knownClassFields() {
		if name, ok := serial.String(m, field); ok && name != "" {
			return name
		}
	}
	return ""
}

func elementClassOf(m serial.Map, raw []any, layout Layout) string {
	if name, ok := serial.String(m, layout.ElementClassField); ok && name != "" {
		return name
	}
	if len(raw) > 0 {
		if first, ok := serial.AsMap(raw[0]); ok {
			if name, ok := serial.String(first, layout.ElementClassField); ok {
				return name
			}
		}
	}
	return ""
}

func rawElements(m serial.Map, layout Layout) ([]any, error) {
	v, ok := m[layout.ElementAttr]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%q is %T, not a list", layout.ElementAttr, v)
	}
	for i, item := range list {
		if _, ok := serial.AsMap(item); !ok {
			return nil, fmt.Errorf("%q[%d] is %T, not an object", layout.ElementAttr, i, item)
		}
	}
	return list, nil
}
