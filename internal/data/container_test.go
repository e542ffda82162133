package data

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"eta/internal/serial"
)

const (
	testPointClass    = "eta.test.Point"
	testSegmentClass  = "eta.test.Segment"
	testPointSetClass = "eta.test.PointSet"
	testBagClass      = "eta.test.Bag"
	testTaggedClass   = "eta.test.Tagged"
)

type testPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

func (p *testPoint) ToMap() (serial.Map, error) {
	return serial.Map{"x": p.X, "y": p.Y, "label": p.Label}, nil
}

func (p *testPoint) ClassName() string { return testPointClass }

type testSegment struct {
	Length float64 `json:"length"`
}

func (s *testSegment) ToMap() (serial.Map, error) {
	return serial.Map{"length": s.Length}, nil
}

func (s *testSegment) ClassName() string { return testSegmentClass }

type testPointSet struct {
	Container[*testPoint]
}

func newTestPointSet(points ...*testPoint) *testPointSet {
	c := &testPointSet{Container: NewContainer[*testPoint](testPointSetClass, Layout{ElementAttr: "points"}, testPointClass)}
	c.AddMany(points...)
	return c
}

type testBag struct {
	Container[Element]
}

type testTagged struct {
	Container[*testPoint]
}

func decodeInto[T any, PT interface {
	*T
	Element
}](m serial.Map) (Element, error) {
	out := new(T)
	if err := serial.Decode(m, out); err != nil {
		return nil, err
	}
	return PT(out), nil
}

func init() {
	RegisterElement(&ElementType{Name: testPointClass, FromMap: decodeInto[testPoint]})
	RegisterElement(&ElementType{Name: testSegmentClass, FromMap: decodeInto[testSegment]})
	RegisterContainer(ContainerType{
		Name: testPointSetClass,
		New:  func() AnyContainer { return newTestPointSet() },
	})
	RegisterContainer(ContainerType{
		Name: testBagClass,
		New: func() AnyContainer {
			return &testBag{Container: NewContainer[Element](testBagClass, Layout{}, "")}
		},
	})
	RegisterContainer(ContainerType{
		Name: testTaggedClass,
		New: func() AnyContainer {
			return &testTagged{Container: NewContainer[*testPoint](testTaggedClass,
				Layout{ClassField: "_TYPE", ElementAttr: "items", ElementClassField: "_ITEM_TYPE"}, testPointClass)}
		},
	})
}

func samplePoints() []*testPoint {
	return []*testPoint{
		{X: 1, Y: 2, Label: "a"},
		{X: 3, Y: 4, Label: "b"},
		{X: 5, Y: 6, Label: "c"},
	}
}

func TestContainerToMapLayout(t *testing.T) {
	c := newTestPointSet(samplePoints()[:1]...)
	m, err := c.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	want := serial.Map{
		"_CLS":      testPointSetClass,
		"_DATA_CLS": testPointClass,
		"points": []any{
			serial.Map{"x": float64(1), "y": float64(2), "label": "a", "_DATA_CLS": testPointClass},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("unexpected map (-want +got):\n%s", diff)
	}
}

func TestLoadRoundTripThroughAbstractLoader(t *testing.T) {
	orig := newTestPointSet(samplePoints()...)
	m, err := orig.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}

	loaded, err := Load(m)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := As[*testPointSet](loaded)
	if err != nil {
		t.Fatalf("As: %v", err)
	}
	if diff := cmp.Diff(orig.Elements(), got.Elements()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got.ElementClass() != testPointClass {
		t.Fatalf("ElementClass = %q", got.ElementClass())
	}
}

func TestReadWriteFormats(t *testing.T) {
	orig := newTestPointSet(samplePoints()...)
	for _, name := range []string{"points.json", "points.yaml", "nested/points.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := Write(path, orig); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := ReadAs[*testPointSet](path)
			if err != nil {
				t.Fatalf("ReadAs: %v", err)
			}
			if diff := cmp.Diff(orig.Elements(), got.Elements()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadCustomClassField(t *testing.T) {
	m := serial.Map{
		"_TYPE": testTaggedClass,
		"items": []any{map[string]any{"x": 1.5, "y": 0.0, "label": "p"}},
	}
	c, err := LoadAs[*testTagged](m)
	if err != nil {
		t.Fatalf("LoadAs: %v", err)
	}
	if c.Len() != 1 || c.At(0).X != 1.5 {
		t.Fatalf("unexpected elements: %+v", c.Elements())
	}

	out, err := c.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if out["_TYPE"] != testTaggedClass || out["_ITEM_TYPE"] != testPointClass {
		t.Fatalf("custom layout keys not used: %v", out)
	}
	if _, ok := out["_CLS"]; ok {
		t.Fatal("default class field must not be written for a custom layout")
	}
}

func TestLoadClassResolution(t *testing.T) {
	tests := []struct {
		name string
		m    serial.Map
		opts []LoadOption
		want error
	}{
		{
			name: "no container tag",
			m:    serial.Map{"points": []any{}},
			want: ErrClassResolution,
		},
		{
			name: "unknown container",
			m:    serial.Map{"_CLS": "eta.test.Nope"},
			want: ErrClassResolution,
		},
		{
			name: "unknown element",
			m:    serial.Map{"_CLS": testPointSetClass, "_DATA_CLS": "eta.test.Nope", "points": []any{}},
			want: ErrClassResolution,
		},
		{
			name: "untagged heterogeneous elements",
			m:    serial.Map{"_CLS": testBagClass, "data": []any{map[string]any{"x": 1.0}}},
			want: ErrAmbiguousElementType,
		},
		{
			name: "element of another type",
			m: serial.Map{
				"_CLS":      testPointSetClass,
				"_DATA_CLS": LabeledVideoRecordClass,
				"points":    []any{map[string]any{"video_path": "v.mp4", "label": "x"}},
			},
			want: ErrIncompatibleElement,
		},
		{
			name: "element list is not a list",
			m:    serial.Map{"_CLS": testPointSetClass, "points": "nope"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.m, tt.opts...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadOptionsFillMissingTags(t *testing.T) {
	m := serial.Map{"data": []any{map[string]any{"length": 2.5}}}
	c, err := Load(m, WithContainerClass(testBagClass), WithElementClass(testSegmentClass))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bag, err := As[*testBag](c)
	if err != nil {
		t.Fatalf("As: %v", err)
	}
	seg, ok := bag.At(0).(*testSegment)
	if !ok || seg.Length != 2.5 {
		t.Fatalf("unexpected element %#v", bag.At(0))
	}
}

func TestLoadEmptyContainerWithoutElementClass(t *testing.T) {
	c, err := Load(serial.Map{"_CLS": testBagClass})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestLoadPerElementClassTags(t *testing.T) {
	bag := &testBag{Container: NewContainer[Element](testBagClass, Layout{}, "")}
	bag.Add(&testPoint{X: 1, Label: "p"})
	bag.Add(&testSegment{Length: 7})

	m, err := bag.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if _, ok := m["_DATA_CLS"]; ok {
		t.Fatal("heterogeneous container should not carry a container-level element class")
	}

	loaded, err := LoadAs[*testBag](m)
	if err != nil {
		t.Fatalf("LoadAs: %v", err)
	}
	if _, ok := loaded.At(0).(*testPoint); !ok {
		t.Fatalf("element 0 is %T", loaded.At(0))
	}
	if seg, ok := loaded.At(1).(*testSegment); !ok || seg.Length != 7 {
		t.Fatalf("element 1 is %#v", loaded.At(1))
	}
}

func TestAsWrongContainer(t *testing.T) {
	c, err := Load(serial.Map{"_CLS": RecordsClass})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := As[*testPointSet](c); !errors.Is(err, ErrUnexpectedContainer) {
		t.Fatalf("expected ErrUnexpectedContainer, got %v", err)
	}
}

func TestFilterByIndices(t *testing.T) {
	c := newTestPointSet(samplePoints()...)
	if err := c.FilterByIndices([]int{2, 0, 2}); err != nil {
		t.Fatalf("FilterByIndices: %v", err)
	}
	var labels []string
	for _, p := range c.All() {
		labels = append(labels, p.Label)
	}
	if diff := cmp.Diff([]string{"a", "c"}, labels); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}

	if err := c.FilterByIndices([]int{0, 5}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := c.FilterByIndices([]int{-1}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("failed filter must not modify the container, Len = %d", c.Len())
	}

	if err := c.FilterByIndices(nil); err != nil {
		t.Fatalf("FilterByIndices(nil): %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("empty selection should clear the container, Len = %d", c.Len())
	}
}

func TestElementsReturnsCopy(t *testing.T) {
	c := newTestPointSet(samplePoints()...)
	elems := c.Elements()
	elems[0] = nil
	if c.At(0) == nil {
		t.Fatal("Elements must not expose the backing slice")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatal("Clear should remove every element")
	}
}

func TestRegisteredClasses(t *testing.T) {
	classes := ContainerClasses()
	for _, want := range []string{RecordsClass, testPointSetClass} {
		found := false
		for _, name := range classes {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("%s not registered: %v", want, classes)
		}
	}
	if _, err := LookupElement(LabeledVideoRecordClass); err != nil {
		t.Fatalf("LookupElement: %v", err)
	}
}
