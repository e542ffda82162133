package data

import (
	"fmt"
	"sync"

	"eta/internal/registry"
	"eta/internal/serial"
)

// Element is a value that can be stored in a Container.
type Element interface {
	serial.Serializable
}

// Classed is implemented by elements that report their own class name. It
// takes precedence over the container's declared element class when the
// element is serialized.
type Classed interface {
	ClassName() string
}

// ElementType rebuilds elements of one class from their map form.
type ElementType struct {
	Name    string
	FromMap func(serial.Map) (Element, error)
}

// ContainerType creates empty containers of one class.
type ContainerType struct {
	Name string
	New  func() AnyContainer
}

var (
	elements   = registry.New[*ElementType]("element class")
	containers = registry.New[ContainerType]("container class")

	classFieldsMu sync.RWMutex
	classFields   = []string{DefaultClassField}
)

// NewRecordType describes the record struct R under name. Maps are turned
// into records with BuildRecord.
func NewRecordType[R any, PR interface {
	*R
	Element
}](name string) *ElementType {
	return &ElementType{
		Name: name,
		FromMap: func(m serial.Map) (Element, error) {
			rec, err := BuildRecord[R](m)
			if err != nil {
				return nil, err
			}
			return PR(rec), nil
		},
	}
}

// RegisterElement makes et resolvable by name and returns it. It panics on a
// duplicate name; call it from package initialization.
func RegisterElement(et *ElementType) *ElementType {
	if et == nil || et.FromMap == nil {
		panic("data: RegisterElement requires a FromMap function")
	}
	elements.MustRegister(et.Name, et)
	return et
}

// RegisterContainer makes ct resolvable by name. It panics on a duplicate
// name; call it from package initialization.
func RegisterContainer(ct ContainerType) {
	if ct.New == nil {
		panic("data: RegisterContainer requires a New function")
	}
	field := ct.New().Layout().ClassField
	containers.MustRegister(ct.Name, ct)

	classFieldsMu.Lock()
	defer classFieldsMu.Unlock()
	for _, existing := range classFields {
		if existing == field {
			return
		}
	}
	classFields = append(classFields, field)
}

// LookupElement resolves an element class name.
func LookupElement(name string) (*ElementType, error) {
	et, err := elements.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassResolution, err)
	}
	return et, nil
}

// LookupContainer resolves a container class name.
func LookupContainer(name string) (ContainerType, error) {
	ct, err := containers.Lookup(name)
	if err != nil {
		return ContainerType{}, fmt.Errorf("%w: %w", ErrClassResolution, err)
	}
	return ct, nil
}

// ElementClasses lists the registered element class names.
func ElementClasses() []string {
	return elements.Names()
}

// ContainerClasses lists the registered container class names.
func ContainerClasses() []string {
	return containers.Names()
}

func knownClassFields() []string {
	classFieldsMu.RLock()
	defer classFieldsMu.RUnlock()
	return append([]string(nil), classFields...)
}
