package data

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"eta/internal/serial"
)

func sampleRecords() *Records {
	grouped := NewLabeledVideoRecord("/v/5.mp4", "cat")
	grouped.Group.Set("g1")
	return NewRecords(LabeledVideoRecordType,
		NewLabeledVideoRecord("/v/0.mp4", "cat"),
		NewLabeledVideoRecord("/v/1.mp4", "dog"),
		NewLabeledVideoRecord("/v/2.mp4", "cat"),
		NewLabeledVideoRecord("/v/3.mp4", "bird"),
		NewLabeledVideoRecord("/v/4.mp4", "dog"),
		grouped,
	)
}

func labels(t *testing.T, r *Records) []any {
	t.Helper()
	values, err := r.ValuesOf("label")
	if err != nil {
		t.Fatalf("ValuesOf: %v", err)
	}
	return values
}

func TestRecordsUniqueValuesFirstSeenOrder(t *testing.T) {
	got, err := sampleRecords().UniqueValues("label")
	if err != nil {
		t.Fatalf("UniqueValues: %v", err)
	}
	if diff := cmp.Diff([]any{"cat", "dog", "bird"}, got); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestRecordsIndexAndPartition(t *testing.T) {
	recs := sampleRecords()
	index, err := recs.IndexBy("label")
	if err != nil {
		t.Fatalf("IndexBy: %v", err)
	}
	want := map[any][]int{"cat": {0, 2, 5}, "dog": {1, 4}, "bird": {3}}
	if diff := cmp.Diff(want, index); diff != "" {
		t.Fatalf("unexpected index (-want +got):\n%s", diff)
	}

	parts, err := recs.PartitionBy("label")
	if err != nil {
		t.Fatalf("PartitionBy: %v", err)
	}
	if len(parts["cat"]) != 3 || parts["cat"][2] != recs.At(5) {
		t.Fatalf("unexpected partition: %v", parts["cat"])
	}
}

func TestRecordsKeyOnUnsetOptional(t *testing.T) {
	recs := sampleRecords()
	if _, err := recs.UniqueValues("group"); !errors.Is(err, ErrNoSuchField) {
		t.Fatalf("expected ErrNoSuchField, got %v", err)
	}
	if _, err := recs.IndexBy("missing"); !errors.Is(err, ErrNoSuchField) {
		t.Fatalf("expected ErrNoSuchField, got %v", err)
	}
}

func TestRecordsFilterKeepDropEquivalence(t *testing.T) {
	kept := sampleRecords()
	if err := kept.Filter("label", []any{"cat", "bird"}, nil); err != nil {
		t.Fatalf("Filter keep: %v", err)
	}
	dropped := sampleRecords()
	if err := dropped.Filter("label", nil, []any{"dog"}); err != nil {
		t.Fatalf("Filter drop: %v", err)
	}

	want := []any{"cat", "cat", "bird", "cat"}
	if diff := cmp.Diff(want, labels(t, kept)); diff != "" {
		t.Fatalf("keep result (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(labels(t, kept), labels(t, dropped)); diff != "" {
		t.Fatalf("keep and drop disagree (-keep +drop):\n%s", diff)
	}
}

func TestRecordsFilterErrors(t *testing.T) {
	tests := []struct {
		name       string
		keep, drop []any
		want       error
	}{
		{name: "no criteria", want: ErrNoFilterCriteria},
		{name: "both criteria", keep: []any{"cat"}, drop: []any{"dog"}, want: ErrConflictingFilterCriteria},
		{name: "drop everything", drop: []any{"cat", "dog", "bird"}, want: ErrNoFilterCriteria},
		{name: "unhashable keep", keep: []any{[]string{"cat"}}, want: ErrUnhashableValue},
		{name: "unhashable drop", drop: []any{map[string]any{}}, want: ErrUnhashableValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := sampleRecords()
			err := recs.Filter("label", tt.keep, tt.drop)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if recs.Len() != 6 {
				t.Fatalf("failed filter must not modify records, Len = %d", recs.Len())
			}
		})
	}
}

func TestRecordsFilterUnknownValueKeepsNothing(t *testing.T) {
	recs := sampleRecords()
	if err := recs.Filter("label", []any{"fish"}, nil); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if recs.Len() != 0 {
		t.Fatalf("Len = %d, want 0", recs.Len())
	}
}

func TestRecordsSubsetMatchesFilterByIndices(t *testing.T) {
	recs := sampleRecords()
	indices := []int{4, 1, 3}

	sub, err := recs.Subset(indices)
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if recs.Len() != 6 {
		t.Fatal("Subset must not modify the receiver")
	}
	if sub.RecordType() != LabeledVideoRecordType {
		t.Fatal("Subset should keep the record type")
	}

	filtered := sampleRecords()
	if err := filtered.FilterByIndices(indices); err != nil {
		t.Fatalf("FilterByIndices: %v", err)
	}
	if diff := cmp.Diff(labels(t, filtered), labels(t, sub)); diff != "" {
		t.Fatalf("subset and filter disagree (-filter +subset):\n%s", diff)
	}

	if _, err := recs.Subset([]int{6}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	recs := sampleRecords()
	m, err := recs.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if m["_CLS"] != RecordsClass || m["_RECORD_CLS"] != LabeledVideoRecordClass {
		t.Fatalf("missing class tags: %v", m)
	}
	list, _ := serial.Slice(m, "records")
	if len(list) != 6 {
		t.Fatalf("records list has %d entries", len(list))
	}
	if _, ok := list[0].(serial.Map)["group"]; ok {
		t.Fatal("unset group must not be serialized")
	}

	loaded, err := LoadAs[*Records](m)
	if err != nil {
		t.Fatalf("LoadAs: %v", err)
	}
	if loaded.RecordType() != LabeledVideoRecordType {
		t.Fatalf("record type not bound: %v", loaded.RecordType())
	}
	for i := range recs.Len() {
		if diff := cmp.Diff(recs.At(i), loaded.At(i), cmp.AllowUnexported(Optional[string]{})); diff != "" {
			t.Fatalf("record %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestLoadRecordsRecordType(t *testing.T) {
	untagged := serial.Map{
		"records": []any{map[string]any{"video_path": "a.mp4", "label": "x"}},
	}
	if _, err := LoadRecords(untagged, nil); !errors.Is(err, ErrMissingRecordClass) {
		t.Fatalf("expected ErrMissingRecordClass, got %v", err)
	}
	if _, err := Load(untagged, WithContainerClass(RecordsClass)); !errors.Is(err, ErrMissingRecordClass) {
		t.Fatalf("abstract load: expected ErrMissingRecordClass, got %v", err)
	}

	recs, err := LoadRecords(untagged, LabeledVideoRecordType)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	rec, ok := recs.At(0).(*LabeledVideoRecord)
	if !ok || rec.VideoPath != "a.mp4" {
		t.Fatalf("unexpected record %#v", recs.At(0))
	}

	missing := serial.Map{
		"_RECORD_CLS": LabeledVideoRecordClass,
		"records":     []any{map[string]any{"video_path": "a.mp4"}},
	}
	if _, err := LoadRecords(missing, nil); !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("expected ErrMissingRequiredField, got %v", err)
	}
}

func TestRecordsAddFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultRecordsFilename)
	if err := Write(path, sampleRecords()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	recs := NewRecords(nil)
	n, err := recs.AddFile(path, nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if n != 6 {
		t.Fatalf("AddFile returned %d, want 6", n)
	}
	if recs.RecordType() != LabeledVideoRecordType {
		t.Fatal("AddFile should bind the record type from the file")
	}

	n, err = recs.AddFile(path, nil)
	if err != nil || n != 12 {
		t.Fatalf("second AddFile = %d, %v", n, err)
	}

	read, err := ReadRecords(path, nil)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if diff := cmp.Diff(labels(t, sampleRecords()), labels(t, read)); diff != "" {
		t.Fatalf("ReadRecords mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordsRequiredOnlySerialization(t *testing.T) {
	m, err := NewLabeledVideoRecord("a.mp4", "x").ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	want := serial.Map{"video_path": "a.mp4", "label": "x"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("unexpected map (-want +got):\n%s", diff)
	}
}
