package geometry

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"eta/internal/data"
	"eta/internal/serial"
)

func samplePoints() *LabeledPointContainer {
	p := NewLabeledPoint("nose", 0.5, 0.25)
	p.Confidence.Set(0.9)
	return NewLabeledPointContainer(
		p,
		NewLabeledPoint("eye", 0.4, 0.2),
		NewLabeledPoint("eye", 0.6, 0.1),
	)
}

func TestLabeledPointContainerMapForm(t *testing.T) {
	m, err := samplePoints().ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if m["_CLS"] != LabeledPointContainerClass || m["_DATA_CLS"] != LabeledPointClass {
		t.Fatalf("unexpected class tags: %v", m)
	}
	points, ok := serial.Slice(m, "points")
	if !ok || len(points) != 3 {
		t.Fatalf("points = %v", m["points"])
	}
	if _, ok := m["data"]; ok {
		t.Fatal("elements must be stored under points")
	}
	second := points[1].(serial.Map)
	if _, ok := second["confidence"]; ok {
		t.Fatal("unset confidence must not be serialized")
	}
}

func TestLabeledPointContainerReadThroughAbstractLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.yaml")
	orig := samplePoints()
	if err := data.Write(path, orig); err != nil {
		t.Fatalf("Write: %v", err)
	}

	c, err := data.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, err := data.As[*LabeledPointContainer](c)
	if err != nil {
		t.Fatalf("As: %v", err)
	}
	opts := cmp.AllowUnexported(data.Optional[float64]{})
	if diff := cmp.Diff(orig.Elements(), got.Elements(), opts); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLabeledPointMissingCoordinate(t *testing.T) {
	m := serial.Map{
		"_CLS":   LabeledPointContainerClass,
		"points": []any{map[string]any{"label": "nose", "x": 0.1}},
	}
	if _, err := data.Load(m); !errors.Is(err, data.ErrMissingRequiredField) {
		t.Fatalf("expected ErrMissingRequiredField, got %v", err)
	}
}

func TestLabeledPointQueries(t *testing.T) {
	c := samplePoints()
	if diff := cmp.Diff([]string{"eye", "nose"}, c.Labels()); diff != "" {
		t.Fatalf("Labels (-want +got):\n%s", diff)
	}
	if got := len(c.WithLabel("eye")); got != 2 {
		t.Fatalf("WithLabel(eye) = %d points", got)
	}

	topLeft, bottomRight, ok := c.Bounds()
	if !ok {
		t.Fatal("Bounds should succeed for a non-empty container")
	}
	if topLeft.X != 0.4 || topLeft.Y != 0.1 || bottomRight.X != 0.6 || bottomRight.Y != 0.25 {
		t.Fatalf("Bounds = %+v %+v", topLeft, bottomRight)
	}
	if _, _, ok := NewLabeledPointContainer().Bounds(); ok {
		t.Fatal("empty container has no bounds")
	}
}
