package data

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"eta/internal/serial"
)

const recordTag = "record"

type fieldKind int

const (
	fieldPlain fieldKind = iota
	fieldRequired
	fieldOptional
	fieldExcluded
)

type fieldInfo struct {
	name  string
	index []int
	kind  fieldKind
}

type descriptor struct {
	typ    reflect.Type
	fields []fieldInfo
	byName map[string]int
}

// Schema lists the declared field contract of a record type.
type Schema struct {
	Required []string
	Optional []string
	Excluded []string
}

var (
	descriptors sync.Map // reflect.Type -> *descriptor

	optionalFieldType    = reflect.TypeFor[optionalField]()
	optionalAssignerType = reflect.TypeFor[optionalAssigner]()
)

func describe(t reflect.Type) (*descriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidRecord, t)
	}
	if cached, ok := descriptors.Load(t); ok {
		return cached.(*descriptor), nil
	}

	d := &descriptor{typ: t, byName: make(map[string]int)}
	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous || !sf.IsExported() || !reachable(t, sf.Index) {
			continue
		}
		tag := sf.Tag.Get(recordTag)
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		name = strings.TrimSpace(name)
		if name == "" {
			name = jsonName(sf)
		}

		isOptionalType := sf.Type.Implements(optionalFieldType) &&
			reflect.PointerTo(sf.Type).Implements(optionalAssignerType)

		kind := fieldPlain
		switch strings.TrimSpace(opts) {
		case "required":
			kind = fieldRequired
		case "optional":
			if !isOptionalType {
				return nil, fmt.Errorf("%w: %s.%s is optional but not an Optional[T]", ErrInvalidRecord, t.Name(), sf.Name)
			}
			kind = fieldOptional
		case "excluded":
			kind = fieldExcluded
		case "":
			if isOptionalType {
				kind = fieldOptional
			}
		default:
			return nil, fmt.Errorf("%w: %s.%s has unknown tag option %q", ErrInvalidRecord, t.Name(), sf.Name, opts)
		}

		if _, dup := d.byName[name]; dup {
			return nil, fmt.Errorf("%w: %s declares field %q twice", ErrInvalidRecord, t.Name(), name)
		}
		d.byName[name] = len(d.fields)
		d.fields = append(d.fields, fieldInfo{name: name, index: sf.Index, kind: kind})
	}

	actual, _ := descriptors.LoadOrStore(t, d)
	return actual.(*descriptor), nil
}

// reachable reports whether a promoted field is reached only through exported,
// non-pointer embedded structs.
func reachable(t reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		parent := t.FieldByIndex(index[:i])
		if !parent.IsExported() || parent.Type.Kind() == reflect.Pointer {
			return false
		}
	}
	return true
}

func jsonName(sf reflect.StructField) string {
	if tag := sf.Tag.Get("json"); tag != "" && tag != "-" {
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name
		}
	}
	return sf.Name
}

func (d *descriptor) names(kind fieldKind) []string {
	var out []string
	for _, f := range d.fields {
		if f.kind == kind {
			out = append(out, f.name)
		}
	}
	return out
}

func (d *descriptor) schema() Schema {
	return Schema{
		Required: d.names(fieldRequired),
		Optional: d.names(fieldOptional),
		Excluded: d.names(fieldExcluded),
	}
}

func recordValue(r any) (reflect.Value, *descriptor, error) {
	if r == nil {
		return reflect.Value{}, nil, fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	v := reflect.ValueOf(r)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, nil, fmt.Errorf("%w: nil record", ErrInvalidRecord)
		}
		v = v.Elem()
	}
	d, err := describe(v.Type())
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return v, d, nil
}

// BuildRecord constructs an R from m. Every required field must be a key of
// m. Optional and plain fields are copied when present; an explicit null sets
// an optional field to its zero value. Excluded fields and unknown keys are
// ignored.
func BuildRecord[R any](m serial.Map) (*R, error) {
	rec := new(R)
	v := reflect.ValueOf(rec).Elem()
	d, err := describe(v.Type())
	if err != nil {
		return nil, err
	}

	for _, f := range d.fields {
		if f.kind != fieldRequired {
			continue
		}
		if _, ok := m[f.name]; !ok {
			return nil, fmt.Errorf("%w: %s requires %q", ErrMissingRequiredField, d.typ.Name(), f.name)
		}
	}

	for _, f := range d.fields {
		if f.kind == fieldExcluded {
			continue
		}
		raw, ok := m[f.name]
		if !ok {
			continue
		}
		fv := v.FieldByIndex(f.index)
		if f.kind == fieldOptional {
			err = fv.Addr().Interface().(optionalAssigner).assignOptional(raw)
		} else {
			err = serial.Assign(raw, fv.Addr().Interface())
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s field %q: %v", ErrInvalidRecord, d.typ.Name(), f.name, err)
		}
	}
	return rec, nil
}

// CloneRecord returns a copy of r. Optional fields keep their set or unset
// state.
func CloneRecord[R any](r *R) *R {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// DescribeRecord returns the declared field contract of r's type.
func DescribeRecord(r any) (Schema, error) {
	_, d, err := recordValue(r)
	if err != nil {
		return Schema{}, err
	}
	return d.schema(), nil
}

// SerializableFields lists, in declaration order, the fields RecordToMap
// emits for r: every public field except excluded ones and unset optionals.
func SerializableFields(r any) ([]string, error) {
	v, d, err := recordValue(r)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(d.fields))
	for _, f := range d.fields {
		if _, ok := fieldValue(v, f); ok {
			names = append(names, f.name)
		}
	}
	return names, nil
}

// RecordToMap renders the serializable fields of r.
func RecordToMap(r any) (serial.Map, error) {
	v, d, err := recordValue(r)
	if err != nil {
		return nil, err
	}
	out := make(serial.Map, len(d.fields))
	for _, f := range d.fields {
		value, ok := fieldValue(v, f)
		if !ok {
			continue
		}
		normalized, err := serial.Normalize(value)
		if err != nil {
			return nil, fmt.Errorf("serialize %s field %q: %w", d.typ.Name(), f.name, err)
		}
		out[f.name] = normalized
	}
	return out, nil
}

// Field returns the value of the named field, unwrapping optionals. Unknown,
// private and unset optional fields are reported as ErrNoSuchField. Excluded
// fields exist on the instance and are readable.
func Field(r any, name string) (any, error) {
	v, d, err := recordValue(r)
	if err != nil {
		return nil, err
	}
	idx, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrNoSuchField, d.typ.Name(), name)
	}
	f := d.fields[idx]
	if f.kind == fieldExcluded {
		return v.FieldByIndex(f.index).Interface(), nil
	}
	value, ok := fieldValue(v, f)
	if !ok {
		return nil, fmt.Errorf("%w: %s field %q is not set", ErrNoSuchField, d.typ.Name(), name)
	}
	return value, nil
}

// fieldValue reports the serializable value of f, or false when f is
// excluded or an unset optional.
func fieldValue(v reflect.Value, f fieldInfo) (any, bool) {
	fv := v.FieldByIndex(f.index)
	switch f.kind {
	case fieldExcluded:
		return nil, false
	case fieldOptional:
		return fv.Interface().(optionalField).optionalValue()
	default:
		return fv.Interface(), true
	}
}
