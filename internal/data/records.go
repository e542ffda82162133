package data

import (
	"fmt"
	"reflect"

	"eta/internal/serial"
)

const (
	// RecordsClass is the container class name of Records.
	RecordsClass = "eta.core.data.DataRecords"
	// DefaultRecordsFilename is the conventional file name for a Records file.
	DefaultRecordsFilename = "records.json"
)

// Record is an element whose fields are addressed by name through the
// record struct tags.
type Record interface {
	Element
}

// RecordsLayout is the map layout of Records.
var RecordsLayout = Layout{
	ClassField:        DefaultClassField,
	ElementAttr:       "records",
	ElementClassField: "_RECORD_CLS",
}

func init() {
	RegisterContainer(ContainerType{
		Name: RecordsClass,
		New:  func() AnyContainer { return NewRecords(nil) },
	})
}

// Records is a container of records whose record type is chosen per
// instance rather than by a dedicated container type.
type Records struct {
	Container[Record]
	recordType *ElementType
}

// NewRecords returns a container for records of type rt holding records.
// rt may be nil when the type will be bound by a later load.
func NewRecords(rt *ElementType, records ...Record) *Records {
	r := &Records{
		Container: NewContainer[Record](RecordsClass, RecordsLayout, recordTypeName(rt)),
	}
	r.recordType = rt
	r.AddMany(records...)
	return r
}

func recordTypeName(rt *ElementType) string {
	if rt == nil {
		return ""
	}
	return rt.Name
}

// RecordType returns the record type of the container.
func (r *Records) RecordType() *ElementType {
	return r.recordType
}

func (r *Records) bindElementType(et *ElementType) error {
	if r.recordType == nil {
		r.recordType = et
		r.elementClass = et.Name
	}
	return nil
}

// UniqueValues returns the distinct values of field in first-seen order.
func (r *Records) UniqueValues(field string) ([]any, error) {
	seen := make(map[any]struct{})
	var out []any
	for i, rec := range r.elements {
		v, err := keyField(rec, field, i)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// IndexBy groups record positions by the value of field. Positions are in
// ascending order.
func (r *Records) IndexBy(field string) (map[any][]int, error) {
	out := make(map[any][]int)
	for i, rec := range r.elements {
		v, err := keyField(rec, field, i)
		if err != nil {
			return nil, err
		}
		out[v] = append(out[v], i)
	}
	return out, nil
}

// PartitionBy groups records by the value of field, keeping their order.
func (r *Records) PartitionBy(field string) (map[any][]Record, error) {
	out := make(map[any][]Record)
	for i, rec := range r.elements {
		v, err := keyField(rec, field, i)
		if err != nil {
			return nil, err
		}
		out[v] = append(out[v], rec)
	}
	return out, nil
}

// ValuesOf returns the value of field for every record, in record order.
func (r *Records) ValuesOf(field string) ([]any, error) {
	out := make([]any, 0, len(r.elements))
	for i, rec := range r.elements {
		v, err := Field(rec, field)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Filter keeps the records whose field value is in keep, or not in drop.
// Exactly one of keep and drop may be non-empty. Dropping every value leaves
// nothing to keep and is reported as ErrNoFilterCriteria.
func (r *Records) Filter(field string, keep, drop []any) error {
	if len(keep) > 0 && len(drop) > 0 {
		return ErrConflictingFilterCriteria
	}

	index, err := r.IndexBy(field)
	if err != nil {
		return err
	}

	if len(drop) > 0 {
		dropped := make(map[any]struct{}, len(drop))
		for _, v := range drop {
			if !hashable(v) {
				return fmt.Errorf("%w: drop value %v (%T)", ErrUnhashableValue, v, v)
			}
			dropped[v] = struct{}{}
		}
		unique, err := r.UniqueValues(field)
		if err != nil {
			return err
		}
		keep = make([]any, 0, len(unique))
		for _, v := range unique {
			if _, ok := dropped[v]; !ok {
				keep = append(keep, v)
			}
		}
	}
	if len(keep) == 0 {
		return ErrNoFilterCriteria
	}

	var indices []int
	for _, v := range keep {
		if !hashable(v) {
			return fmt.Errorf("%w: keep value %v (%T)", ErrUnhashableValue, v, v)
		}
		indices = append(indices, index[v]...)
	}
	return r.FilterByIndices(indices)
}

// Subset returns a new Records holding the records at indices, in their
// current relative order. r is not modified.
func (r *Records) Subset(indices []int) (*Records, error) {
	keep, err := r.selection(indices)
	if err != nil {
		return nil, err
	}
	out := NewRecords(r.recordType)
	for _, i := range keep {
		out.Add(r.elements[i])
	}
	return out, nil
}

// AddMap appends the records of another Records map. rt overrides the
// record type; when nil the container's own type is used, then the map's tag.
// It returns the new number of records.
func (r *Records) AddMap(m serial.Map, rt *ElementType) (int, error) {
	if rt == nil {
		rt = r.recordType
	}
	other, err := LoadRecords(m, rt)
	if err != nil {
		return r.Len(), err
	}
	if r.recordType == nil {
		_ = r.bindElementType(other.recordType)
	}
	r.AddMany(other.elements...)
	return r.Len(), nil
}

// AddFile appends the records stored at path. See AddMap.
func (r *Records) AddFile(path string, rt *ElementType) (int, error) {
	m, err := serial.ReadFile(path)
	if err != nil {
		return r.Len(), err
	}
	return r.AddMap(m, rt)
}

// LoadRecords builds a Records from its map form. rt, when non-nil, decides
// the record type regardless of the map's tags; otherwise the _RECORD_CLS
// tag on the container or its first record is resolved.
func LoadRecords(m serial.Map, rt *ElementType) (*Records, error) {
	raw, err := rawElements(m, RecordsLayout)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if rt == nil {
		name := elementClassOf(m, raw, RecordsLayout)
		if name == "" {
			return nil, fmt.Errorf("%w: no record type given and no %s tag", ErrMissingRecordClass, RecordsLayout.ElementClassField)
		}
		if rt, err = LookupElement(name); err != nil {
			return nil, err
		}
	}

	out := NewRecords(rt)
	for i, item := range raw {
		em, _ := serial.AsMap(item)
		e, err := rt.FromMap(em)
		if err != nil {
			return nil, fmt.Errorf("load records: record %d: %w", i, err)
		}
		out.Add(e)
	}
	return out, nil
}

// ReadRecords loads the Records stored at path. See LoadRecords.
func ReadRecords(path string, rt *ElementType) (*Records, error) {
	m, err := serial.ReadFile(path)
	if err != nil {
		return nil, err
	}
	recs, err := LoadRecords(m, rt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func keyField(rec Record, field string, i int) (any, error) {
	v, err := Field(rec, field)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", i, err)
	}
	if !hashable(v) {
		return nil, fmt.Errorf("%w: record %d field %q is %T", ErrUnhashableValue, i, field, v)
	}
	return v, nil
}

func hashable(v any) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}
