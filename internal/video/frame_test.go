package video

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"eta/internal/data"
	"eta/internal/sequence"
	"eta/internal/serial"
	"eta/internal/testsupport"
)

func sampleLabels() *FrameLabelContainer {
	walking := NewFrameLabel(4, "walking")
	walking.Confidence.Set(0.75)
	return NewFrameLabelContainer(
		NewFrameLabel(3, "standing"),
		walking,
		NewFrameLabel(4, "person"),
		NewFrameLabel(12, "running"),
	)
}

func TestFrameLabelContainerLayout(t *testing.T) {
	m, err := sampleLabels().ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if m["_TYPE"] != FrameLabelContainerClass || m["_FRAME_CLS"] != FrameLabelClass {
		t.Fatalf("unexpected class tags: %v", m)
	}
	for _, key := range []string{"_CLS", "_DATA_CLS", "data"} {
		if _, ok := m[key]; ok {
			t.Errorf("default key %q must not be written", key)
		}
	}
	frames, ok := serial.Slice(m, "frames")
	if !ok || len(frames) != 4 {
		t.Fatalf("frames = %v", m["frames"])
	}
	if frames[0].(serial.Map)["_FRAME_CLS"] != FrameLabelClass {
		t.Fatalf("element tag missing: %v", frames[0])
	}
}

func TestFrameLabelContainerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	orig := sampleLabels()
	if err := data.Write(path, orig); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := data.ReadAs[*FrameLabelContainer](path)
	if err != nil {
		t.Fatalf("ReadAs: %v", err)
	}
	opts := cmp.AllowUnexported(data.Optional[float64]{})
	if diff := cmp.Diff(orig.Elements(), got.Elements(), opts); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameQueries(t *testing.T) {
	c := sampleLabels()
	if diff := cmp.Diff([]int{3, 4, 12}, c.FrameNumbers()); diff != "" {
		t.Fatalf("FrameNumbers (-want +got):\n%s", diff)
	}
	if got := c.ForFrame(4); len(got) != 2 || got[0].Label != "walking" {
		t.Fatalf("ForFrame(4) = %v", got)
	}
	if got := c.ForFrame(5); len(got) != 0 {
		t.Fatalf("ForFrame(5) = %v", got)
	}
}

func TestFramesAgainstSequence(t *testing.T) {
	dir := t.TempDir()
	pattern := testsupport.WriteFrames(t, dir, "frame-%05d.png", 1, 10)
	seq, err := sequence.Open(pattern)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	c := sampleLabels()
	paths := make(map[int]string)
	for frame, path := range c.FramePaths(seq) {
		paths[frame] = path
	}
	want := map[int]string{
		3: filepath.Join(dir, "frame-00003.png"),
		4: filepath.Join(dir, "frame-00004.png"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("FramePaths (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{12}, c.MissingFrames(seq)); diff != "" {
		t.Fatalf("MissingFrames (-want +got):\n%s", diff)
	}
	if err := c.Validate(seq); !errors.Is(err, sequence.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if err := c.FilterByIndices([]int{0, 1, 2}); err != nil {
		t.Fatalf("FilterByIndices: %v", err)
	}
	if err := c.Validate(seq); err != nil {
		t.Fatalf("Validate after filter: %v", err)
	}
}
